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

package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jerry-enebeli/tally/model"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Row is the rendered form of an account.
type Row struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// Rows renders accounts with a fixed number of decimal places, ordered by client id.
func Rows(accounts []model.Account, precision int32) []Row {
	sorted := make([]model.Account, len(accounts))
	copy(sorted, accounts)
	model.SortAccounts(sorted)

	rows := make([]Row, 0, len(sorted))
	for _, a := range sorted {
		rows = append(rows, Row{
			Client:    a.ClientID,
			Available: a.Available.StringFixed(precision),
			Held:      a.Held.StringFixed(precision),
			Total:     a.Total.StringFixed(precision),
			Locked:    a.Locked,
		})
	}
	return rows
}

// SortRows orders rows by client id in place.
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Client < rows[j].Client
	})
}

// Write renders accounts to w in the given format.
func Write(w io.Writer, format string, accounts []model.Account, precision int32) error {
	rows := Rows(accounts, precision)
	switch format {
	case FormatCSV, "":
		return writeCSV(w, rows)
	case FormatJSON:
		return writeJSON(w, rows)
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.Client), 10),
			row.Available,
			row.Held,
			row.Total,
			strconv.FormatBool(row.Locked),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "writing client %d", row.Client)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing accounts")
}

func writeJSON(w io.Writer, rows []Row) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(rows), "encoding accounts")
}
