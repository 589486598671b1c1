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

package main

import (
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tally"
	"github.com/jerry-enebeli/tally/internal/ingest"
)

func generateCommands(b *tallyInstance) *cobra.Command {
	opts := tally.GeneratorOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "write a random transaction batch as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Precision = b.tally.Precision()
			batch := tally.GenerateBatch(opts)
			return ingest.WriteTransactions(cmd.OutOrStdout(), batch, opts.Precision)
		},
	}

	cmd.Flags().IntVar(&opts.Clients, "clients", 10, "number of distinct clients")
	cmd.Flags().IntVar(&opts.Count, "count", 1000, "number of transactions")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
