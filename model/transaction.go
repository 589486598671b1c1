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
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the type of a transaction.
type Kind int

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

var kindNames = map[Kind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeback: "chargeback",
}

// Kinds lists every transaction kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name so reports and logs stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsTransfer reports whether the kind moves funds in or out and therefore carries an amount.
func (k Kind) IsTransfer() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// ParseKind converts a transaction type name into a Kind.
// Matching ignores case and surrounding whitespace.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Transaction is a single event replayed against the ledger.
// The set of implementations is closed: Deposit, Withdrawal, Dispute, Resolve and Chargeback.
type Transaction interface {
	Kind() Kind
	ClientID() uint16
	TxID() uint32
	isTransaction()
}

// Deposit credits the client's available funds.
type Deposit struct {
	Client uint16
	Tx     uint32
	Amount decimal.Decimal
}

// Withdrawal debits the client's available funds.
type Withdrawal struct {
	Client uint16
	Tx     uint32
	Amount decimal.Decimal
}

// Dispute holds the amount of an earlier deposit or withdrawal. Tx is the disputed transaction.
type Dispute struct {
	Client uint16
	Tx     uint32
}

// Resolve releases a disputed amount back to the available funds.
type Resolve struct {
	Client uint16
	Tx     uint32
}

// Chargeback reverses a disputed amount and locks the account.
type Chargeback struct {
	Client uint16
	Tx     uint32
}

func (Deposit) Kind() Kind         { return KindDeposit }
func (d Deposit) ClientID() uint16 { return d.Client }
func (d Deposit) TxID() uint32     { return d.Tx }
func (Deposit) isTransaction()     {}

func (Withdrawal) Kind() Kind         { return KindWithdrawal }
func (w Withdrawal) ClientID() uint16 { return w.Client }
func (w Withdrawal) TxID() uint32     { return w.Tx }
func (Withdrawal) isTransaction()     {}

func (Dispute) Kind() Kind         { return KindDispute }
func (d Dispute) ClientID() uint16 { return d.Client }
func (d Dispute) TxID() uint32     { return d.Tx }
func (Dispute) isTransaction()     {}

func (Resolve) Kind() Kind         { return KindResolve }
func (r Resolve) ClientID() uint16 { return r.Client }
func (r Resolve) TxID() uint32     { return r.Tx }
func (Resolve) isTransaction()     {}

func (Chargeback) Kind() Kind         { return KindChargeback }
func (c Chargeback) ClientID() uint16 { return c.Client }
func (c Chargeback) TxID() uint32     { return c.Tx }
func (Chargeback) isTransaction()     {}

// NewTransaction builds the variant matching kind.
// Deposits and withdrawals require a valid, non-negative amount; the other kinds ignore it.
func NewTransaction(kind Kind, client uint16, tx uint32, amount decimal.NullDecimal) (Transaction, error) {
	if kind.IsTransfer() {
		if !amount.Valid || amount.Decimal.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}

	switch kind {
	case KindDeposit:
		return Deposit{Client: client, Tx: tx, Amount: amount.Decimal}, nil
	case KindWithdrawal:
		return Withdrawal{Client: client, Tx: tx, Amount: amount.Decimal}, nil
	case KindDispute:
		return Dispute{Client: client, Tx: tx}, nil
	case KindResolve:
		return Resolve{Client: client, Tx: tx}, nil
	case KindChargeback:
		return Chargeback{Client: client, Tx: tx}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// AmountOf returns the amount carried by a transfer, or false for kinds without one.
func AmountOf(txn Transaction) (decimal.Decimal, bool) {
	switch t := txn.(type) {
	case Deposit:
		return t.Amount, true
	case Withdrawal:
		return t.Amount, true
	}
	return decimal.Decimal{}, false
}
