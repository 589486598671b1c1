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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
)

const (
	DEFAULT_PORT          = "5001"
	DEFAULT_PRECISION     = 4
	DEFAULT_QUEUE_SIZE    = 1024
	DEFAULT_REPORT_KEY    = "tally:report"
	DEFAULT_REPORT_TTL    = 86400
	DEFAULT_WEBHOOK_RETRY = 5
	DEFAULT_SERVICE_NAME  = "tally"

	OutputFormatCSV  = "csv"
	OutputFormatJSON = "json"
)

var ConfigStore atomic.Value

type ReplayConfig struct {
	Precision    *int   `json:"precision" envconfig:"TALLY_REPLAY_PRECISION"`
	Shards       int    `json:"shards" envconfig:"TALLY_REPLAY_SHARDS"`
	QueueSize    int    `json:"queue_size" envconfig:"TALLY_REPLAY_QUEUE_SIZE"`
	FailFast     bool   `json:"fail_fast" envconfig:"TALLY_REPLAY_FAIL_FAST"`
	OutputFormat string `json:"output_format" envconfig:"TALLY_REPLAY_OUTPUT_FORMAT"`
}

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"TALLY_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"TALLY_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"TALLY_SERVER_PORT"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"TALLY_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"TALLY_REDIS_SKIP_TLS_VERIFY"`
	ReportKey     string `json:"report_key" envconfig:"TALLY_REDIS_REPORT_KEY"`
	ReportTTLSec  int    `json:"report_ttl_sec" envconfig:"TALLY_REDIS_REPORT_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TALLY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TALLY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TALLY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type WebhookConfig struct {
	Url        string            `json:"url" envconfig:"TALLY_WEBHOOK_URL"`
	Headers    map[string]string `json:"headers" envconfig:"TALLY_WEBHOOK_HEADERS"`
	MaxRetries int               `json:"max_retries" envconfig:"TALLY_WEBHOOK_MAX_RETRIES"`
}

type Notification struct {
	Webhook WebhookConfig `json:"webhook"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"TALLY_TRACING_ENABLED"`
	Endpoint    string `json:"endpoint" envconfig:"TALLY_TRACING_ENDPOINT"`
	Insecure    bool   `json:"insecure" envconfig:"TALLY_TRACING_INSECURE"`
	ServiceName string `json:"service_name" envconfig:"TALLY_TRACING_SERVICE_NAME"`
}

type Configuration struct {
	ProjectName  string          `json:"project_name" envconfig:"TALLY_PROJECT_NAME"`
	LogLevel     string          `json:"log_level" envconfig:"TALLY_LOG_LEVEL"`
	LogFormat    string          `json:"log_format" envconfig:"TALLY_LOG_FORMAT"`
	Replay       ReplayConfig    `json:"replay"`
	Server       ServerConfig    `json:"server"`
	RateLimit    RateLimitConfig `json:"rate_limit"`
	Redis        RedisConfig     `json:"redis"`
	Notification Notification    `json:"notification"`
	Tracing      TracingConfig   `json:"tracing"`
}

// PrecisionPlaces returns the configured number of decimal places.
func (cnf *Configuration) PrecisionPlaces() int32 {
	if cnf.Replay.Precision == nil {
		return DEFAULT_PRECISION
	}
	return int32(*cnf.Replay.Precision)
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("config file %s not found, using env variables and defaults", file)
	}

	// override config from environment variables
	err = envconfig.Process("tally", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	if err := loadConfigFromFile(configFile); err != nil {
		return err
	}
	cnf, err := Fetch()
	if err != nil {
		return err
	}
	logger(cnf)
	return nil
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded. Create a json file called tally.json or set TALLY_* env variables")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Replay.OutputFormat = strings.ToLower(strings.TrimSpace(cnf.Replay.OutputFormat))
	cnf.LogLevel = strings.ToLower(strings.TrimSpace(cnf.LogLevel))
	cnf.LogFormat = strings.ToLower(strings.TrimSpace(cnf.LogFormat))

	if cnf.ProjectName == "" {
		cnf.ProjectName = "Tally"
	}
	if cnf.LogLevel == "" {
		cnf.LogLevel = logrus.InfoLevel.String()
	}
	if cnf.LogFormat == "" {
		cnf.LogFormat = "text"
	}

	if cnf.Replay.Precision == nil {
		cnf.Replay.Precision = ptr.Int(DEFAULT_PRECISION)
	}
	if cnf.Replay.Shards == 0 {
		cnf.Replay.Shards = 1
	}
	if cnf.Replay.QueueSize == 0 {
		cnf.Replay.QueueSize = DEFAULT_QUEUE_SIZE
	}
	if cnf.Replay.OutputFormat == "" {
		cnf.Replay.OutputFormat = OutputFormatCSV
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
	}

	if cnf.Redis.ReportKey == "" {
		cnf.Redis.ReportKey = DEFAULT_REPORT_KEY
	}
	if cnf.Redis.ReportTTLSec == 0 {
		cnf.Redis.ReportTTLSec = DEFAULT_REPORT_TTL
	}

	if cnf.Notification.Webhook.MaxRetries == 0 {
		cnf.Notification.Webhook.MaxRetries = DEFAULT_WEBHOOK_RETRY
	}

	if cnf.Tracing.ServiceName == "" {
		cnf.Tracing.ServiceName = DEFAULT_SERVICE_NAME
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		cnf.RateLimit.CleanupIntervalSec = ptr.Int(10800) // 3 hours in seconds
	}

	return cnf.validate()
}

func (cnf *Configuration) validate() error {
	if err := validation.ValidateStruct(&cnf.Replay,
		validation.Field(&cnf.Replay.Precision, validation.NotNil.Error("precision is required"), validation.Min(0), validation.Max(18)),
		validation.Field(&cnf.Replay.Shards, validation.Min(1)),
		validation.Field(&cnf.Replay.QueueSize, validation.Min(0)),
		validation.Field(&cnf.Replay.OutputFormat, validation.In(OutputFormatCSV, OutputFormatJSON)),
	); err != nil {
		return err
	}
	if cnf.Server.Secure {
		if err := validation.Validate(cnf.Server.SecretKey, validation.Required.Error("secret key is required when secure mode is on")); err != nil {
			return err
		}
	}
	return validation.ValidateStruct(cnf,
		validation.Field(&cnf.LogLevel, validation.By(func(value interface{}) error {
			_, err := logrus.ParseLevel(value.(string))
			return err
		})),
		validation.Field(&cnf.LogFormat, validation.In("text", "json")),
	)
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger(cnf *Configuration) {
	level, err := logrus.ParseLevel(cnf.LogLevel)
	if err == nil {
		logrus.SetLevel(level)
	}
	if cnf.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	log.SetOutput(logrus.StandardLogger().Writer())
}
