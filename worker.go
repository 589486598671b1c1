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
	"fmt"
)

// Worker drains one shard into its own Ledger, one job at a time.
type Worker struct {
	id        int
	ledger    *Ledger
	jobs      <-chan Job
	collector *collector
	failFast  bool
}

func newWorker(id int, jobs <-chan Job, c *collector, failFast bool) *Worker {
	return &Worker{
		id:        id,
		ledger:    NewLedger(),
		jobs:      jobs,
		collector: c,
		failFast:  failFast,
	}
}

// Run processes jobs until the shard is closed or ctx is done. With fail-fast on,
// the first rejected transaction ends the run with ErrReplayStopped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			if err := w.ledger.Process(ctx, job.Transaction); err != nil {
				failure := w.collector.rejected(job, err)
				if w.failFast {
					return fmt.Errorf("%w: line %d: %s", ErrReplayStopped, failure.Line, failure.Error)
				}
				continue
			}
			w.collector.accepted()
		}
	}
}

// Ledger returns the worker's ledger. It must not be used while Run is active.
func (w *Worker) Ledger() *Ledger {
	return w.ledger
}
