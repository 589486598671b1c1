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
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix, e.g. "run_<uuid>".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// SortAccounts orders accounts by client id in place.
func SortAccounts(accounts []Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ClientID < accounts[j].ClientID
	})
}

// ApplyPrecision rounds an amount to the given number of decimal places.
func ApplyPrecision(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Round(precision)
}

// SumTotals adds up the total balance of every account.
func SumTotals(accounts []Account) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accounts {
		sum = sum.Add(a.Total)
	}
	return sum
}
