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
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/tally/model"
)

// GeneratorOptions controls the shape of a generated batch.
type GeneratorOptions struct {
	Clients   int   // number of distinct client ids, starting at 1
	Count     int   // number of transactions to emit
	Seed      int64 // 0 picks a random seed
	Precision int32 // decimal places of generated amounts
}

type generatorClient struct {
	transfers []uint32 // accepted-looking deposits and withdrawals
	disputed  []uint32 // transactions with an open dispute
}

// GenerateBatch produces a random batch that exercises every transaction kind.
// Most dispute lifecycle events reference earlier transfers of the same client, so the
// batch replays mostly cleanly, but it is not guaranteed to be free of rejections.
func GenerateBatch(opts GeneratorOptions) []model.Transaction {
	if opts.Clients <= 0 {
		opts.Clients = 1
	}
	if opts.Clients > 1<<16-1 {
		opts.Clients = 1<<16 - 1
	}
	faker := gofakeit.New(opts.Seed)
	clients := make(map[uint16]*generatorClient)
	batch := make([]model.Transaction, 0, opts.Count)
	var nextTx uint32 = 1

	for len(batch) < opts.Count {
		clientID := uint16(faker.Number(1, opts.Clients))
		c, ok := clients[clientID]
		if !ok {
			c = &generatorClient{}
			clients[clientID] = c
		}

		roll := faker.Number(1, 100)
		switch {
		case roll <= 55 || len(c.transfers) == 0:
			amount := decimal.NewFromFloat(faker.Float64Range(0.01, 1000)).Round(opts.Precision)
			batch = append(batch, model.Deposit{Client: clientID, Tx: nextTx, Amount: amount})
			c.transfers = append(c.transfers, nextTx)
			nextTx++
		case roll <= 75:
			amount := decimal.NewFromFloat(faker.Float64Range(0.01, 250)).Round(opts.Precision)
			batch = append(batch, model.Withdrawal{Client: clientID, Tx: nextTx, Amount: amount})
			c.transfers = append(c.transfers, nextTx)
			nextTx++
		case roll <= 88:
			tx := c.transfers[faker.Number(0, len(c.transfers)-1)]
			batch = append(batch, model.Dispute{Client: clientID, Tx: tx})
			c.disputed = append(c.disputed, tx)
		case len(c.disputed) > 0:
			i := faker.Number(0, len(c.disputed)-1)
			tx := c.disputed[i]
			c.disputed = append(c.disputed[:i], c.disputed[i+1:]...)
			if roll <= 97 {
				batch = append(batch, model.Resolve{Client: clientID, Tx: tx})
			} else {
				batch = append(batch, model.Chargeback{Client: clientID, Tx: tx})
			}
		}
	}
	return batch
}
