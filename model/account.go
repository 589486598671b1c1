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
	"github.com/shopspring/decimal"
)

// Account holds the balances of a single client.
// Total always equals Available + Held, and neither component goes below zero.
type Account struct {
	ClientID  uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns an unlocked account with zero balances for the given client.
func NewAccount(clientID uint16) *Account {
	return &Account{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Snapshot returns a copy of the account that is safe to hand out.
func (a *Account) Snapshot() Account {
	return *a
}

// computeTotal recomputes the total from the available and held balances.
func (a *Account) computeTotal() {
	a.Total = a.Available.Add(a.Held)
}

// Deposit credits amount to the available funds.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	a.Available = a.Available.Add(amount)
	a.computeTotal()
	return nil
}

// Withdraw debits amount from the available funds.
// It fails without touching the account if the available funds do not cover it.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Available) {
		return ErrInsufficientFunds
	}
	a.Available = a.Available.Sub(amount)
	a.computeTotal()
	return nil
}

// Dispute moves amount from the available funds to the held funds. The total is unchanged.
// The disputed amount must still be available.
func (a *Account) Dispute(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Available) {
		return ErrInsufficientFunds
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	return nil
}

// Resolve releases amount from the held funds back to the available funds.
func (a *Account) Resolve(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Held) {
		return ErrInsufficientHeld
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	return nil
}

// Chargeback removes amount from the held funds and locks the account.
// Once locked an account stays locked.
func (a *Account) Chargeback(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Held) {
		return ErrInsufficientHeld
	}
	a.Held = a.Held.Sub(amount)
	a.computeTotal()
	a.Locked = true
	return nil
}

// Consistent reports whether the balance invariants hold.
func (a *Account) Consistent() bool {
	return a.Total.Equal(a.Available.Add(a.Held)) &&
		!a.Available.IsNegative() &&
		!a.Held.IsNegative()
}
