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
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{}
	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, "Tally", cnf.ProjectName)
	assert.Equal(t, "info", cnf.LogLevel)
	assert.Equal(t, "text", cnf.LogFormat)
	assert.Equal(t, int32(DEFAULT_PRECISION), cnf.PrecisionPlaces())
	assert.Equal(t, 1, cnf.Replay.Shards)
	assert.Equal(t, DEFAULT_QUEUE_SIZE, cnf.Replay.QueueSize)
	assert.Equal(t, OutputFormatCSV, cnf.Replay.OutputFormat)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, DEFAULT_REPORT_KEY, cnf.Redis.ReportKey)
	assert.Equal(t, DEFAULT_REPORT_TTL, cnf.Redis.ReportTTLSec)
	assert.Equal(t, DEFAULT_WEBHOOK_RETRY, cnf.Notification.Webhook.MaxRetries)
	assert.Equal(t, DEFAULT_SERVICE_NAME, cnf.Tracing.ServiceName)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Nil(t, cnf.RateLimit.Burst)
	require.NotNil(t, cnf.RateLimit.CleanupIntervalSec)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
}

func TestValidateAndAddDefaults_KeepsZeroPrecision(t *testing.T) {
	cnf := Configuration{Replay: ReplayConfig{Precision: ptr.Int(0)}}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, int32(0), cnf.PrecisionPlaces())
}

func TestValidateAndAddDefaults_RateLimit(t *testing.T) {
	rps := 10.0
	cnf := Configuration{RateLimit: RateLimitConfig{RequestsPerSecond: &rps}}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)

	cnf = Configuration{RateLimit: RateLimitConfig{Burst: ptr.Int(8)}}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4.0, *cnf.RateLimit.RequestsPerSecond)
}

func TestValidateAndAddDefaults_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cnf  Configuration
	}{
		{"negative precision", Configuration{Replay: ReplayConfig{Precision: ptr.Int(-1)}}},
		{"precision too large", Configuration{Replay: ReplayConfig{Precision: ptr.Int(19)}}},
		{"negative shards", Configuration{Replay: ReplayConfig{Shards: -2}}},
		{"unknown output format", Configuration{Replay: ReplayConfig{OutputFormat: "xml"}}},
		{"unknown log level", Configuration{LogLevel: "loud"}},
		{"unknown log format", Configuration{LogFormat: "yaml"}},
		{"secure without secret", Configuration{Server: ServerConfig{Secure: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cnf.validateAndAddDefaults())
		})
	}
}

func TestValidateAndAddDefaults_NormalisesInput(t *testing.T) {
	cnf := Configuration{
		ProjectName: "  Ledger Audit ",
		LogLevel:    " DEBUG",
		Replay:      ReplayConfig{OutputFormat: " JSON "},
		Server:      ServerConfig{Port: " 8080 "},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, "Ledger Audit", cnf.ProjectName)
	assert.Equal(t, "debug", cnf.LogLevel)
	assert.Equal(t, OutputFormatJSON, cnf.Replay.OutputFormat)
	assert.Equal(t, "8080", cnf.Server.Port)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "tally.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		Replay:      ReplayConfig{Shards: 4, Precision: ptr.Int(2)},
		Redis:       RedisConfig{Dns: "temp-redis:6379"},
	}
	require.NoError(t, json.NewEncoder(tmpFile).Encode(sampleConfig))
	tmpFile.Close()

	t.Setenv("TALLY_PROJECT_NAME", "Env Project")
	t.Setenv("TALLY_REPLAY_SHARDS", "8")

	require.NoError(t, loadConfigFromFile(tmpFile.Name()))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, 8, loadedConfig.Replay.Shards)
	assert.Equal(t, int32(2), loadedConfig.PrecisionPlaces())
	assert.Equal(t, "temp-redis:6379", loadedConfig.Redis.Dns)
}

func TestLoadConfigFromFile_MissingFileUsesDefaults(t *testing.T) {
	require.NoError(t, loadConfigFromFile("does-not-exist.json"))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, 1, loadedConfig.Replay.Shards)
	assert.Equal(t, int32(DEFAULT_PRECISION), loadedConfig.PrecisionPlaces())
}

func TestLoadConfigFromFile_InvalidJSON(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "tally.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	_, err = tmpFile.WriteString("{not json")
	require.NoError(t, err)
	tmpFile.Close()

	assert.Error(t, loadConfigFromFile(tmpFile.Name()))
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "tally.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{ProjectName: "InitConfig Test", LogLevel: "warn"}
	require.NoError(t, json.NewEncoder(tmpFile).Encode(sampleConfig))
	tmpFile.Close()

	level := logrus.GetLevel()
	defer logrus.SetLevel(level)

	require.NoError(t, InitConfig(tmpFile.Name()))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "InitConfig Test", loadedConfig.ProjectName)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mocked"})
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "mocked", cnf.ProjectName)
}
