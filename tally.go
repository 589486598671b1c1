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

package tally

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jerry-enebeli/tally/config"
	"github.com/jerry-enebeli/tally/internal/ingest"
	"github.com/jerry-enebeli/tally/model"
)

var (
	tracer = otel.Tracer("tally")

	// ErrReplayStopped is returned when fail-fast ends a replay early.
	ErrReplayStopped = errors.New("replay stopped at first failure")
)

// Tally replays transaction batches. Every call to Replay starts from empty
// ledgers, so one Tally can serve many independent batches.
type Tally struct {
	shards    int
	queueSize int
	precision int32
	failFast  bool
	webhook   config.WebhookConfig
}

// NewTally builds a Tally from configuration.
func NewTally(cnf *config.Configuration) *Tally {
	return &Tally{
		shards:    cnf.Replay.Shards,
		queueSize: cnf.Replay.QueueSize,
		precision: cnf.PrecisionPlaces(),
		failFast:  cnf.Replay.FailFast,
		webhook:   cnf.Notification.Webhook,
	}
}

// WithShards returns a copy of t using n shards. Values below 1 keep the current setting.
func (t *Tally) WithShards(n int) *Tally {
	clone := *t
	if n >= 1 {
		clone.shards = n
	}
	return &clone
}

// Precision returns the number of decimal places amounts are rounded to.
func (t *Tally) Precision() int32 {
	return t.precision
}

// entrySource yields transactions in input order and io.EOF at the end.
type entrySource interface {
	Read() (ingest.Entry, error)
}

type sliceSource struct {
	txns []model.Transaction
	next int
}

func (s *sliceSource) Read() (ingest.Entry, error) {
	if s.next >= len(s.txns) {
		return ingest.Entry{}, io.EOF
	}
	s.next++
	return ingest.Entry{Line: s.next, Transaction: s.txns[s.next-1]}, nil
}

// Replay reads a CSV batch from source and applies it.
// Rejected and malformed rows are recorded in the report and the batch continues,
// unless fail-fast is configured.
func (t *Tally) Replay(ctx context.Context, source io.Reader) (*Report, error) {
	return t.replay(ctx, ingest.NewReader(source, t.precision))
}

// ReplayTransactions applies already parsed transactions, numbering them from line 1.
func (t *Tally) ReplayTransactions(ctx context.Context, txns []model.Transaction) (*Report, error) {
	return t.replay(ctx, &sliceSource{txns: txns})
}

func (t *Tally) replay(ctx context.Context, source entrySource) (*Report, error) {
	runID := model.GenerateUUIDWithSuffix("run")
	ctx, span := tracer.Start(ctx, "Replay")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.Int("run.shards", t.shards))

	report := &Report{
		RunID:     runID,
		Shards:    t.shards,
		StartedAt: ptr.Time(time.Now().UTC()),
	}
	c := newCollector(runID)
	queue := NewQueue(t.shards, t.queueSize)

	g, gctx := errgroup.WithContext(ctx)
	workers := make([]*Worker, queue.Len())
	for i := range workers {
		w := newWorker(i, queue.Shard(i), c, t.failFast)
		workers[i] = w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	intakeErr := t.intake(gctx, source, queue, c)
	queue.Close()
	workErr := g.Wait()

	for _, w := range workers {
		report.Accounts = append(report.Accounts, w.Ledger().Accounts()...)
		report.OpenDisputes += w.Ledger().OpenDisputes()
	}
	model.SortAccounts(report.Accounts)
	c.fill(report)

	logrus.WithFields(logrus.Fields{
		"run_id":    runID,
		"shards":    t.shards,
		"accounts":  len(report.Accounts),
		"processed": report.Processed,
		"failed":    report.Failed,
		"malformed": report.Malformed,
	}).Info("replay finished")

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return report, err
	}
	for _, err := range []error{workErr, intakeErr} {
		if err == nil {
			continue
		}
		if errors.Is(err, ErrReplayStopped) {
			report.Stopped = true
		}
		if !errors.Is(err, context.Canceled) {
			span.RecordError(err)
			return report, err
		}
	}
	return report, nil
}

// intake feeds the queue until the source is exhausted, an unreadable input is hit,
// fail-fast triggers on a malformed row, or ctx is done.
func (t *Tally) intake(ctx context.Context, source entrySource, queue *Queue, c *collector) error {
	for {
		entry, err := source.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var recErr *ingest.MalformedRecordError
			if !errors.As(err, &recErr) {
				return err
			}
			failure := c.malformedRow(recErr)
			if t.failFast {
				return fmt.Errorf("%w: line %d: %s", ErrReplayStopped, failure.Line, failure.Error)
			}
			continue
		}
		if err := queue.Enqueue(ctx, Job{Line: entry.Line, Transaction: entry.Transaction}); err != nil {
			return err
		}
	}
}
