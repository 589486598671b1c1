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

package ingest

import (
	"errors"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/tally/model"
)

// Record is one raw input row, trimmed but not yet parsed.
type Record struct {
	Type   string
	Client string
	Tx     string
	Amount string
}

func kindRule(value interface{}) error {
	_, err := model.ParseKind(value.(string))
	return err
}

func uintRule(bits int) validation.RuleFunc {
	return func(value interface{}) error {
		if _, err := strconv.ParseUint(value.(string), 10, bits); err != nil {
			return errors.New("must be an unsigned integer of at most " + strconv.Itoa(bits) + " bits")
		}
		return nil
	}
}

func amountRule(value interface{}) error {
	amount, err := decimal.NewFromString(value.(string))
	if err != nil {
		return errors.New("must be a decimal number")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func (r *Record) isTransfer() bool {
	kind, err := model.ParseKind(r.Type)
	return err == nil && kind.IsTransfer()
}

// ValidateRecord checks that every field parses. The amount is only required for
// deposits and withdrawals and is ignored for the other kinds.
func (r *Record) ValidateRecord() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.By(kindRule)),
		validation.Field(&r.Client, validation.Required, validation.By(uintRule(16))),
		validation.Field(&r.Tx, validation.Required, validation.By(uintRule(32))),
		validation.Field(&r.Amount, validation.When(r.isTransfer(), validation.Required, validation.By(amountRule))),
	)
}

// ToTransaction validates the record and converts it, rounding the amount to precision places.
func (r *Record) ToTransaction(precision int32) (model.Transaction, error) {
	if err := r.ValidateRecord(); err != nil {
		return nil, err
	}

	kind, _ := model.ParseKind(r.Type)
	client, _ := strconv.ParseUint(r.Client, 10, 16)
	tx, _ := strconv.ParseUint(r.Tx, 10, 32)

	var amount decimal.NullDecimal
	if kind.IsTransfer() {
		amount = decimal.NewNullDecimal(model.ApplyPrecision(decimal.RequireFromString(r.Amount), precision))
	}
	return model.NewTransaction(kind, uint16(client), uint32(tx), amount)
}

func newRecord(fields []string, columns map[string]int) Record {
	get := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	return Record{
		Type:   get(columnType),
		Client: get(columnClient),
		Tx:     get(columnTx),
		Amount: get(columnAmount),
	}
}
