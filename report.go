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
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/jerry-enebeli/tally/internal/ingest"
	"github.com/jerry-enebeli/tally/model"
)

// Failure is a row that was not applied, either because it was malformed or because
// the ledger rejected it.
type Failure struct {
	Line   int    `json:"line"`
	Kind   string `json:"kind,omitempty"`
	Client uint16 `json:"client,omitempty"`
	Tx     uint32 `json:"tx,omitempty"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

// Report is the outcome of a replay.
type Report struct {
	RunID        string          `json:"run_id"`
	Shards       int             `json:"shards"`
	Accounts     []model.Account `json:"accounts"`
	Failures     []Failure       `json:"failures"`
	Processed    int             `json:"processed"`
	Failed       int             `json:"failed"`
	Malformed    int             `json:"malformed"`
	OpenDisputes int             `json:"open_disputes"`
	Stopped      bool            `json:"stopped,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ReportSummary is the compact form of a report sent to webhooks.
type ReportSummary struct {
	RunID          string     `json:"run_id"`
	Accounts       int        `json:"accounts"`
	LockedAccounts int        `json:"locked_accounts"`
	Total          string     `json:"total"`
	Processed      int        `json:"processed"`
	Failed         int        `json:"failed"`
	Malformed      int        `json:"malformed"`
	OpenDisputes   int        `json:"open_disputes"`
	Stopped        bool       `json:"stopped"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Summary condenses the report. Total is the sum of every account total.
func (r *Report) Summary(precision int32) ReportSummary {
	locked := 0
	for _, a := range r.Accounts {
		if a.Locked {
			locked++
		}
	}
	return ReportSummary{
		RunID:          r.RunID,
		Accounts:       len(r.Accounts),
		LockedAccounts: locked,
		Total:          model.SumTotals(r.Accounts).StringFixed(precision),
		Processed:      r.Processed,
		Failed:         r.Failed,
		Malformed:      r.Malformed,
		OpenDisputes:   r.OpenDisputes,
		Stopped:        r.Stopped,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

// collector gathers outcomes from concurrent workers.
type collector struct {
	mu        sync.Mutex
	runID     string
	processed int
	failed    int
	malformed int
	failures  []Failure
}

func newCollector(runID string) *collector {
	return &collector{runID: runID}
}

func (c *collector) accepted() {
	c.mu.Lock()
	c.processed++
	c.mu.Unlock()
}

func (c *collector) rejected(job Job, err error) Failure {
	failure := Failure{
		Line:   job.Line,
		Kind:   job.Transaction.Kind().String(),
		Client: job.Transaction.ClientID(),
		Tx:     job.Transaction.TxID(),
		Error:  err.Error(),
		Err:    err,
	}
	logrus.WithFields(logrus.Fields{
		"run_id": c.runID,
		"line":   failure.Line,
		"kind":   failure.Kind,
		"client": failure.Client,
		"tx":     failure.Tx,
	}).Warn(err)

	c.mu.Lock()
	c.failed++
	c.failures = append(c.failures, failure)
	c.mu.Unlock()
	return failure
}

func (c *collector) malformedRow(err *ingest.MalformedRecordError) Failure {
	failure := Failure{Line: err.Line, Error: err.Error(), Err: err}
	logrus.WithFields(logrus.Fields{
		"run_id": c.runID,
		"line":   err.Line,
	}).Warn(err.Err)

	c.mu.Lock()
	c.malformed++
	c.failures = append(c.failures, failure)
	c.mu.Unlock()
	return failure
}

// fill copies the counters into report, with failures in input order.
func (c *collector) fill(report *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make([]Failure, len(c.failures))
	copy(failures, c.failures)
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Line < failures[j].Line
	})

	report.Failures = failures
	report.Processed = c.processed
	report.Failed = c.failed
	report.Malformed = c.malformed
	report.CompletedAt = ptr.Time(time.Now().UTC())
}
