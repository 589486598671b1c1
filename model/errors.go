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

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is returned when a withdrawal or dispute exceeds the available funds.
	ErrInsufficientFunds = errors.New("insufficient available funds")
	// ErrInsufficientHeld is returned when a resolve or chargeback exceeds the held funds.
	ErrInsufficientHeld = errors.New("insufficient held funds")
	// ErrAccountLocked is returned for any transaction against an account frozen by a chargeback.
	ErrAccountLocked = errors.New("account is locked")
	// ErrTransactionNotFound is returned when a dispute references a transaction the client never made.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDisputeNotFound is returned when a resolve or chargeback references a transaction that is not under dispute.
	ErrDisputeNotFound = errors.New("transaction is not under dispute")
	// ErrAlreadyDisputed is returned when a transaction that is already held is disputed again.
	ErrAlreadyDisputed = errors.New("transaction is already under dispute")
	// ErrDuplicateTransaction is returned when a deposit or withdrawal reuses a transaction id.
	ErrDuplicateTransaction = errors.New("transaction id has already been used")
	// ErrInvalidAmount is returned for a missing or negative transfer amount.
	ErrInvalidAmount = errors.New("amount must be a non-negative decimal")
	// ErrUnknownKind is returned when a transaction type name is not recognised.
	ErrUnknownKind = errors.New("unknown transaction type")
	// ErrMalformedRecord marks an input row that could not be turned into a transaction.
	ErrMalformedRecord = errors.New("malformed record")
)

// TransactionError describes a transaction the ledger refused to apply.
// The wrapped error is one of the sentinel errors above.
type TransactionError struct {
	Kind   Kind
	Client uint16
	Tx     uint32
	Err    error
}

// NewTransactionError wraps err with the identity of txn.
func NewTransactionError(txn Transaction, err error) *TransactionError {
	return &TransactionError{Kind: txn.Kind(), Client: txn.ClientID(), Tx: txn.TxID(), Err: err}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s (client %d, tx %d): %v", e.Kind, e.Client, e.Tx, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
