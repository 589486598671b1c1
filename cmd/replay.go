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
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tally"
	"github.com/jerry-enebeli/tally/config"
	"github.com/jerry-enebeli/tally/internal/export"
	"github.com/jerry-enebeli/tally/internal/publish"
	redis_db "github.com/jerry-enebeli/tally/internal/redis-db"
)

type replayOptions struct {
	shards  int
	format  string
	output  string
	publish bool
	notify  bool
}

func replayCommands(b *tallyInstance) *cobra.Command {
	opts := replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <file|->",
		Short: "replay a CSV batch and print the resulting accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), b, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.shards, "shards", 0, "number of shards (defaults to replay.shards)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: csv or json (defaults to replay.output_format)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the account table to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "publish the account table to redis")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "send the run summary to the configured webhook")
	return cmd
}

// runReplay replays the batch at path ("-" for stdin) and renders the account table.
// A fail-fast stop still renders what was applied before returning the stop error.
func runReplay(ctx context.Context, b *tallyInstance, path string, opts replayOptions, stdout io.Writer) error {
	shutdown, err := initializeTracing(ctx, b.cnf)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logrus.Warnf("error during tracing shutdown: %v", err)
		}
	}()

	source, closeSource, err := openSource(path)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := b.tally.WithShards(opts.shards)
	report, replayErr := runner.Replay(ctx, source)
	if replayErr != nil && !errors.Is(replayErr, tally.ErrReplayStopped) {
		return errors.Wrap(replayErr, "replay failed")
	}

	format := opts.format
	if format == "" {
		format = b.cnf.Replay.OutputFormat
	}
	if err := writeAccounts(report, format, opts.output, runner.Precision(), stdout); err != nil {
		return err
	}

	if opts.publish {
		if err := publishReport(ctx, b.cnf, report, runner.Precision()); err != nil {
			return err
		}
	}
	if opts.notify {
		if err := runner.Notify(ctx, report); err != nil {
			logrus.WithField("run_id", report.RunID).Warnf("notification failed: %v", err)
		}
	}
	return replayErr
}

func openSource(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeAccounts(report *tally.Report, format, output string, precision int32, stdout io.Writer) error {
	out := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return errors.Wrapf(err, "creating %s", output)
		}
		defer f.Close()
		out = f
	}
	return export.Write(out, format, report.Accounts, precision)
}

func publishReport(ctx context.Context, cnf *config.Configuration, report *tally.Report, precision int32) error {
	if cnf.Redis.Dns == "" {
		return errors.New("publishing requires redis.dns to be configured")
	}
	client, err := redis_db.NewRedisClient(ctx, cnf.Redis.Dns, cnf.Redis.SkipTLSVerify)
	if err != nil {
		return errors.Wrap(err, "connecting to redis")
	}
	defer client.Close()

	publisher := publish.NewPublisher(client.Client(), cnf.Redis)
	return publisher.Publish(ctx, report.RunID, export.Rows(report.Accounts, precision))
}
