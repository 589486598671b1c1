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

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jerry-enebeli/tally/model"
)

var (
	ledgerTracer = otel.Tracer("tally.ledger")
)

// txRef identifies a transaction. Transaction ids are unique per client.
type txRef struct {
	client uint16
	tx     uint32
}

// historyEntry is an accepted deposit or withdrawal.
type historyEntry struct {
	kind   model.Kind
	amount decimal.Decimal
}

// Ledger owns every account of a replay together with the history of accepted
// transfers and the set of transactions currently under dispute.
//
// Process is not safe for concurrent use. Callers that want parallelism partition
// transactions by client and give each partition its own Ledger.
type Ledger struct {
	accounts     map[uint16]*model.Account
	history      map[txRef]historyEntry
	openDisputes map[txRef]decimal.Decimal
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:     make(map[uint16]*model.Account),
		history:      make(map[txRef]historyEntry),
		openDisputes: make(map[txRef]decimal.Decimal),
	}
}

// getOrCreateAccount returns the account of a client, creating it on first reference.
func (l *Ledger) getOrCreateAccount(clientID uint16) *model.Account {
	account, ok := l.accounts[clientID]
	if !ok {
		account = model.NewAccount(clientID)
		l.accounts[clientID] = account
	}
	return account
}

// Process applies a single transaction. On error the ledger is left exactly as it was
// and the returned error is a *model.TransactionError wrapping one of the model sentinels.
func (l *Ledger) Process(ctx context.Context, txn model.Transaction) error {
	_, span := ledgerTracer.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("transaction.kind", txn.Kind().String()),
			attribute.Int("transaction.client", int(txn.ClientID())),
			attribute.Int64("transaction.tx", int64(txn.TxID())),
		))
	defer span.End()

	if err := l.apply(txn); err != nil {
		txErr := model.NewTransactionError(txn, err)
		span.RecordError(txErr)
		return txErr
	}
	return nil
}

func (l *Ledger) apply(txn model.Transaction) error {
	account := l.getOrCreateAccount(txn.ClientID())
	if account.Locked {
		return model.ErrAccountLocked
	}

	ref := txRef{client: txn.ClientID(), tx: txn.TxID()}

	switch t := txn.(type) {
	case model.Deposit:
		return l.applyTransfer(ref, model.KindDeposit, t.Amount, account.Deposit)
	case model.Withdrawal:
		return l.applyTransfer(ref, model.KindWithdrawal, t.Amount, account.Withdraw)
	case model.Dispute:
		original, ok := l.history[ref]
		if !ok {
			return model.ErrTransactionNotFound
		}
		if _, open := l.openDisputes[ref]; open {
			return model.ErrAlreadyDisputed
		}
		if err := account.Dispute(original.amount); err != nil {
			return err
		}
		l.openDisputes[ref] = original.amount
	case model.Resolve:
		amount, ok := l.openDisputes[ref]
		if !ok {
			return model.ErrDisputeNotFound
		}
		if err := account.Resolve(amount); err != nil {
			return err
		}
		delete(l.openDisputes, ref)
	case model.Chargeback:
		amount, ok := l.openDisputes[ref]
		if !ok {
			return model.ErrDisputeNotFound
		}
		if err := account.Chargeback(amount); err != nil {
			return err
		}
		delete(l.openDisputes, ref)
	default:
		return model.ErrUnknownKind
	}
	return nil
}

// applyTransfer runs a deposit or withdrawal and records it in the history once it succeeds.
func (l *Ledger) applyTransfer(ref txRef, kind model.Kind, amount decimal.Decimal, op func(decimal.Decimal) error) error {
	if _, seen := l.history[ref]; seen {
		return model.ErrDuplicateTransaction
	}
	if err := op(amount); err != nil {
		return err
	}
	l.history[ref] = historyEntry{kind: kind, amount: amount}
	return nil
}

// Account returns a copy of a client's account.
func (l *Ledger) Account(clientID uint16) (model.Account, bool) {
	account, ok := l.accounts[clientID]
	if !ok {
		return model.Account{}, false
	}
	return account.Snapshot(), true
}

// Accounts returns a copy of every known account ordered by client id.
func (l *Ledger) Accounts() []model.Account {
	accounts := make([]model.Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		accounts = append(accounts, account.Snapshot())
	}
	model.SortAccounts(accounts)
	return accounts
}

// OpenDisputes returns the number of transactions currently under dispute.
func (l *Ledger) OpenDisputes() int {
	return len(l.openDisputes)
}

// HistoryLen returns the number of accepted deposits and withdrawals.
func (l *Ledger) HistoryLen() int {
	return len(l.history)
}
