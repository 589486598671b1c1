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

package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tally/config"
)

const (
	EventReplayCompleted = "replay.completed"
	EventReplayStopped   = "replay.stopped"
)

// NewWebhook represents the structure of a webhook notification.
// It includes an event type and associated payload data.
type NewWebhook struct {
	Event   string      `json:"event"` // The event type that triggered the webhook.
	Payload interface{} `json:"data"`  // The data associated with the event.
}

// webhookBackOff builds the retry policy for a delivery.
var webhookBackOff = func() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = time.Minute
	return policy
}

var webhookClient = &http.Client{Timeout: 10 * time.Second}

// processHTTP sends a webhook notification via HTTP POST request.
// Non-2xx answers are errors; 4xx answers are not worth retrying.
func processHTTP(ctx context.Context, cnf config.WebhookConfig, data NewWebhook) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cnf.Url, bytes.NewReader(jsonData))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range cnf.Headers {
		req.Header.Set(key, value)
	}

	resp, err := webhookClient.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := fmt.Errorf("webhook responded with status code %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(statusErr)
	}
	return statusErr
}

// SendWebhook delivers a notification, retrying transient failures up to
// cnf.MaxRetries times. It does nothing when no URL is configured.
func SendWebhook(ctx context.Context, cnf config.WebhookConfig, newWebhook NewWebhook) error {
	if cnf.Url == "" {
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(webhookBackOff(), uint64(cnf.MaxRetries)), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		return processHTTP(ctx, cnf, newWebhook)
	}, policy)

	fields := logrus.Fields{"event": newWebhook.Event, "attempts": attempt}
	if err != nil {
		logrus.WithFields(fields).Errorf("webhook delivery failed: %v", err)
		return err
	}
	logrus.WithFields(fields).Info("webhook notification sent")
	return nil
}

// Notify sends the summary of report to the configured webhook.
func (t *Tally) Notify(ctx context.Context, report *Report) error {
	event := EventReplayCompleted
	if report.Stopped {
		event = EventReplayStopped
	}
	return SendWebhook(ctx, t.webhook, NewWebhook{Event: event, Payload: report.Summary(t.precision)})
}
