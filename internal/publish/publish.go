/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tally/config"
	"github.com/jerry-enebeli/tally/internal/export"
	redlock "github.com/jerry-enebeli/tally/internal/lock"
)

const (
	lockTimeout = 30 * time.Second
	lockWait    = 10 * time.Second
)

// Publisher writes finished account tables to Redis. Each run gets its own hash and
// <report_key>:latest points at the most recent run.
type Publisher struct {
	client    redis.UniversalClient
	reportKey string
	ttl       time.Duration
}

func NewPublisher(client redis.UniversalClient, cnf config.RedisConfig) *Publisher {
	return &Publisher{
		client:    client,
		reportKey: cnf.ReportKey,
		ttl:       time.Duration(cnf.ReportTTLSec) * time.Second,
	}
}

// RunKey is the hash holding the rows of a run.
func (p *Publisher) RunKey(runID string) string {
	return p.reportKey + ":" + runID
}

// LatestKey holds the id of the last published run.
func (p *Publisher) LatestKey() string {
	return p.reportKey + ":latest"
}

func (p *Publisher) lockKey() string {
	return p.reportKey + ":lock"
}

// Publish stores rows under the run's hash, one field per client, and moves the
// latest pointer. Concurrent publishers of the same report key are serialized.
func (p *Publisher) Publish(ctx context.Context, runID string, rows []export.Row) error {
	locker := redlock.NewLocker(p.client, p.lockKey(), runID)
	if err := locker.WaitLock(ctx, lockTimeout, lockWait); err != nil {
		return errors.Wrap(err, "acquiring report lock")
	}
	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.WithField("run_id", runID).Warnf("releasing report lock: %v", err)
		}
	}()

	fields := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return errors.Wrapf(err, "encoding client %d", row.Client)
		}
		fields[strconv.FormatUint(uint64(row.Client), 10)] = data
	}

	runKey := p.RunKey(runID)
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, runKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, runKey, fields)
			pipe.Expire(ctx, runKey, p.ttl)
		}
		pipe.Set(ctx, p.LatestKey(), runID, p.ttl)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "publishing run %s", runID)
	}

	logrus.WithFields(logrus.Fields{"run_id": runID, "key": runKey, "accounts": len(rows)}).Info("published account table")
	return nil
}

// Fetch returns the rows of a published run ordered by client id.
func (p *Publisher) Fetch(ctx context.Context, runID string) ([]export.Row, error) {
	values, err := p.client.HGetAll(ctx, p.RunKey(runID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "fetching run %s", runID)
	}
	rows := make([]export.Row, 0, len(values))
	for client, value := range values {
		var row export.Row
		if err := json.Unmarshal([]byte(value), &row); err != nil {
			return nil, errors.Wrapf(err, "decoding client %s", client)
		}
		rows = append(rows, row)
	}
	export.SortRows(rows)
	return rows, nil
}

// Latest returns the id of the last published run, or "" if there is none.
func (p *Publisher) Latest(ctx context.Context) (string, error) {
	runID, err := p.client.Get(ctx, p.LatestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return runID, errors.Wrap(err, "fetching latest run")
}
