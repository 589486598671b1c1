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
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr bool
	}{
		{"lower case", "deposit", KindDeposit, false},
		{"upper case", "WITHDRAWAL", KindWithdrawal, false},
		{"mixed case", "DisPute", KindDispute, false},
		{"padded", "  resolve ", KindResolve, false},
		{"chargeback", "chargeback", KindChargeback, false},
		{"unknown", "transfer", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindRoundTripsThroughText(t *testing.T) {
	for _, kind := range Kinds() {
		data, err := json.Marshal(kind)
		require.NoError(t, err)

		var parsed Kind
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, kind, parsed)
	}
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestKindIsTransfer(t *testing.T) {
	assert.True(t, KindDeposit.IsTransfer())
	assert.True(t, KindWithdrawal.IsTransfer())
	assert.False(t, KindDispute.IsTransfer())
	assert.False(t, KindResolve.IsTransfer())
	assert.False(t, KindChargeback.IsTransfer())
}

func TestNewTransaction(t *testing.T) {
	amount := decimal.NewNullDecimal(decimal.RequireFromString("1.5"))

	t.Run("deposit carries amount", func(t *testing.T) {
		txn, err := NewTransaction(KindDeposit, 1, 2, amount)
		require.NoError(t, err)
		assert.Equal(t, Deposit{Client: 1, Tx: 2, Amount: amount.Decimal}, txn)
		got, ok := AmountOf(txn)
		assert.True(t, ok)
		assert.True(t, amount.Decimal.Equal(got))
	})

	t.Run("withdrawal carries amount", func(t *testing.T) {
		txn, err := NewTransaction(KindWithdrawal, 1, 3, amount)
		require.NoError(t, err)
		assert.Equal(t, KindWithdrawal, txn.Kind())
		assert.Equal(t, uint16(1), txn.ClientID())
		assert.Equal(t, uint32(3), txn.TxID())
	})

	t.Run("dispute ignores amount", func(t *testing.T) {
		txn, err := NewTransaction(KindDispute, 1, 2, amount)
		require.NoError(t, err)
		assert.Equal(t, Dispute{Client: 1, Tx: 2}, txn)
		_, ok := AmountOf(txn)
		assert.False(t, ok)
	})

	t.Run("resolve and chargeback without amount", func(t *testing.T) {
		txn, err := NewTransaction(KindResolve, 1, 2, decimal.NullDecimal{})
		require.NoError(t, err)
		assert.Equal(t, Resolve{Client: 1, Tx: 2}, txn)

		txn, err = NewTransaction(KindChargeback, 1, 2, decimal.NullDecimal{})
		require.NoError(t, err)
		assert.Equal(t, Chargeback{Client: 1, Tx: 2}, txn)
	})

	t.Run("transfer without amount", func(t *testing.T) {
		_, err := NewTransaction(KindDeposit, 1, 2, decimal.NullDecimal{})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("negative transfer", func(t *testing.T) {
		_, err := NewTransaction(KindWithdrawal, 1, 2, decimal.NewNullDecimal(decimal.NewFromInt(-1)))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewTransaction(Kind(99), 1, 2, amount)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}
