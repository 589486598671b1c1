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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tally/api"
	"github.com/jerry-enebeli/tally/config"
	"github.com/jerry-enebeli/tally/internal/traces"
)

const shutdownTimeout = 10 * time.Second

func initializeTracing(ctx context.Context, cfg *config.Configuration) (traces.ShutdownFunc, error) {
	shutdown, err := traces.SetupOTelSDK(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %w", err)
	}
	return shutdown, nil
}

// startServer serves router until ctx is done, then drains in-flight requests.
func startServer(ctx context.Context, router http.Handler, cfg config.ServerConfig) error {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting server on http://localhost:%s", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logrus.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

/*
serverCommands returns the Cobra command responsible for starting the HTTP API.
It sets up tracing and the routes before launching the server.
*/
func serverCommands(b *tallyInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the tally server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdown, err := initializeTracing(ctx, b.cnf)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Errorf("Error during shutdown: %v", err)
				}
			}()

			router := api.NewAPI(b.tally, b.cnf).Router()
			return startServer(ctx, router, b.cnf.Server)
		},
	}

	return cmd
}
