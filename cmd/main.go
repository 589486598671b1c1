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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tally"
	"github.com/jerry-enebeli/tally/config"
)

// Tally represents the CLI application, encapsulating the root Cobra command.
type Tally struct {
	cmd *cobra.Command
}

// tallyInstance holds the runner and the configuration every command shares.
type tallyInstance struct {
	tally *tally.Tally
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the runner before any command runs.
func preRun(app *tallyInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		app.tally = tally.NewTally(cnf)
		app.cnf = cnf
		return nil
	}
}

// NewCLI creates the command-line interface. A bare `tally <file>` replays the file
// with the configured defaults.
func NewCLI() *Tally {
	var configFile string
	b := &tallyInstance{}

	var rootCmd = &cobra.Command{
		Use:           "tally [file]",
		Short:         "Replay transaction batches against client accounts",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runReplay(cmd.Context(), b, args[0], replayOptions{}, cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tally.json", "Configuration file for tally")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(replayCommands(b))
	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(generateCommands(b))
	rootCmd.AddCommand(configCommands(b))

	return &Tally{cmd: rootCmd}
}

// executeCLI runs the root command until it finishes or the process is interrupted.
func (w Tally) executeCLI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
