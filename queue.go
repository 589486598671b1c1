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
	"hash/fnv"
	"strconv"

	"github.com/jerry-enebeli/tally/model"
)

// Job is a transaction waiting in a shard together with its position in the batch.
type Job struct {
	Line        int
	Transaction model.Transaction
}

// Queue routes transactions to a fixed set of bounded shard channels.
// Every transaction of a client lands in the same shard, so each shard sees its
// clients' transactions in input order.
type Queue struct {
	shards []chan Job
}

// NewQueue creates a queue with numberOfShards shards, each buffering up to size jobs.
//
// Parameters:
// - numberOfShards int: The number of shards. Values below 1 are treated as 1.
// - size int: The capacity of each shard channel.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
func NewQueue(numberOfShards, size int) *Queue {
	if numberOfShards < 1 {
		numberOfShards = 1
	}
	if size < 0 {
		size = 0
	}
	shards := make([]chan Job, numberOfShards)
	for i := range shards {
		shards[i] = make(chan Job, size)
	}
	return &Queue{shards: shards}
}

// Enqueue hands a transaction to the shard owning its client.
// It blocks while the shard is full and returns ctx.Err() if the context is cancelled first.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	shard := q.shards[q.shardFor(job.Transaction.ClientID())]
	select {
	case shard <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shard returns the receive side of shard i.
func (q *Queue) Shard(i int) <-chan Job {
	return q.shards[i]
}

// Len returns the number of shards.
func (q *Queue) Len() int {
	return len(q.shards)
}

// Close closes every shard. No Enqueue may follow.
func (q *Queue) Close() {
	for _, shard := range q.shards {
		close(shard)
	}
}

// shardFor picks the shard index of a client.
func (q *Queue) shardFor(clientID uint16) int {
	return hashClientID(clientID) % len(q.shards)
}

// hashClientID returns a consistent hash value for a client id.
//
// Parameters:
// - clientID uint16: The client id to hash.
//
// Returns:
// - int: The hash value of the client id.
func hashClientID(clientID uint16) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(strconv.FormatUint(uint64(clientID), 10)))
	return int(hasher.Sum32())
}
