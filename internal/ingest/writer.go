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
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jerry-enebeli/tally/model"
)

// WriteTransactions writes txns as CSV in the format Reader accepts, header included.
func WriteTransactions(w io.Writer, txns []model.Transaction, precision int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{columnType, columnClient, columnTx, columnAmount}); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, txn := range txns {
		amount := ""
		if value, ok := model.AmountOf(txn); ok {
			amount = value.StringFixed(precision)
		}
		row := []string{
			txn.Kind().String(),
			strconv.FormatUint(uint64(txn.ClientID()), 10),
			strconv.FormatUint(uint64(txn.TxID()), 10),
			amount,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing tx %d", txn.TxID())
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing transactions")
}
