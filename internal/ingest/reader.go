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
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/jerry-enebeli/tally/model"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

var defaultColumns = map[string]int{columnType: 0, columnClient: 1, columnTx: 2, columnAmount: 3}

// Entry is a parsed transaction and the input line it came from.
type Entry struct {
	Line        int
	Transaction model.Transaction
}

// MalformedRecordError reports an input row that could not be turned into a transaction.
// It matches both model.ErrMalformedRecord and the underlying cause with errors.Is.
type MalformedRecordError struct {
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %v: %v", e.Line, model.ErrMalformedRecord, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{model.ErrMalformedRecord, e.Err}
}

// Reader reads transactions from CSV with the columns type, client, tx, amount.
// A header row is optional; when present it decides the column order.
type Reader struct {
	csv       *csv.Reader
	columns   map[string]int
	precision int32
}

// NewReader returns a Reader that rounds amounts to precision decimal places.
func NewReader(r io.Reader, precision int32) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr, precision: precision}
}

// Read returns the next transaction. A row that cannot be parsed yields a
// *MalformedRecordError and the next call continues with the following row.
// Read returns io.EOF once the input is exhausted.
func (r *Reader) Read() (Entry, error) {
	for {
		fields, err := r.csv.Read()
		if err == io.EOF {
			return Entry{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return Entry{}, &MalformedRecordError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return Entry{}, errors.Wrap(err, "reading transactions")
		}
		line, _ := r.csv.FieldPos(0)

		if isBlank(fields) {
			continue
		}
		if r.columns == nil {
			if isHeader(fields) {
				r.columns = headerColumns(fields)
				continue
			}
			r.columns = defaultColumns
		}

		record := newRecord(fields, r.columns)
		txn, err := record.ToTransaction(r.precision)
		if err != nil {
			return Entry{}, &MalformedRecordError{Line: line, Err: err}
		}
		return Entry{Line: line, Transaction: txn}, nil
	}
}

// ReadAll reads every row, collecting malformed rows separately.
func ReadAll(r io.Reader, precision int32) ([]Entry, []*MalformedRecordError, error) {
	reader := NewReader(r, precision)
	var entries []Entry
	var malformed []*MalformedRecordError
	for {
		entry, err := reader.Read()
		if err == io.EOF {
			return entries, malformed, nil
		}
		if err != nil {
			var recErr *MalformedRecordError
			if errors.As(err, &recErr) {
				malformed = append(malformed, recErr)
				continue
			}
			return entries, malformed, err
		}
		entries = append(entries, entry)
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// isHeader reports whether fields name the type, client and tx columns, in any order.
func isHeader(fields []string) bool {
	columns := headerColumns(fields)
	for _, name := range []string{columnType, columnClient, columnTx} {
		if _, ok := columns[name]; !ok {
			return false
		}
	}
	return true
}

func headerColumns(fields []string) map[string]int {
	columns := make(map[string]int, len(fields))
	for i, f := range fields {
		columns[strings.ToLower(strings.TrimSpace(f))] = i
	}
	return columns
}
