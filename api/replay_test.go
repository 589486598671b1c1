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

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"

	"github.com/jerry-enebeli/tally"
	"github.com/jerry-enebeli/tally/config"
)

const scenarioCSV = `type, client, tx, amount
deposit, 1, 0, 20.00
dispute, 1, 0,
resolve, 1, 0,
withdrawal, 1, 1, 20.00
deposit, 1, 2, 0.10
dispute, 1, 2,
chargeback, 1, 2,
deposit, 2, 3, 5
withdrawal, 2, 4, 9
`

type TestRequest struct {
	Payload io.Reader
	Router  *gin.Engine
	Method  string
	Route   string
	Header  map[string]string
}

func SetUpTestRequest(s TestRequest) *httptest.ResponseRecorder {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	req.Header.Set("Content-Type", "text/csv")
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)
	return resp
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		Replay:  config.ReplayConfig{Precision: ptr.Int(4), Shards: 1, QueueSize: 8},
		Tracing: config.TracingConfig{ServiceName: "tally-test"},
	}
}

func setupRouter(cnf *config.Configuration) *gin.Engine {
	return NewAPI(tally.NewTally(cnf), cnf).Router()
}

type replayResponse struct {
	RunID    string `json:"run_id"`
	Accounts []struct {
		Client    uint16 `json:"client"`
		Available string `json:"available"`
		Held      string `json:"held"`
		Total     string `json:"total"`
		Locked    bool   `json:"locked"`
	} `json:"accounts"`
	Failures []struct {
		Line  int    `json:"line"`
		Kind  string `json:"kind"`
		Error string `json:"error"`
	} `json:"failures"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Shards    int `json:"shards"`
}

func TestHealth(t *testing.T) {
	resp := SetUpTestRequest(TestRequest{Router: setupRouter(testConfig()), Method: http.MethodGet, Route: "/"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "server running...")
}

func TestReplay(t *testing.T) {
	resp := SetUpTestRequest(TestRequest{
		Router:  setupRouter(testConfig()),
		Method:  http.MethodPost,
		Route:   "/replay?shards=3",
		Payload: strings.NewReader(scenarioCSV),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var report replayResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, strings.HasPrefix(report.RunID, "run_"))
	assert.Equal(t, 3, report.Shards)
	assert.Equal(t, 8, report.Processed)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Accounts, 2)
	assert.Equal(t, uint16(1), report.Accounts[0].Client)
	assert.Equal(t, "0", report.Accounts[0].Total)
	assert.True(t, report.Accounts[0].Locked)
	assert.Equal(t, "5", report.Accounts[1].Available)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 10, report.Failures[0].Line)
	assert.Equal(t, "withdrawal", report.Failures[0].Kind)
}

func TestReplay_CSVFormat(t *testing.T) {
	resp := SetUpTestRequest(TestRequest{
		Router:  setupRouter(testConfig()),
		Method:  http.MethodPost,
		Route:   "/replay?format=csv",
		Payload: strings.NewReader(scenarioCSV),
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Tally-Run-Id"))
	assert.Equal(t, "client,available,held,total,locked\n"+
		"1,0.0000,0.0000,0.0000,true\n"+
		"2,5.0000,0.0000,5.0000,false\n", resp.Body.String())
}

func TestReplay_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		route string
		body  string
		error string
	}{
		{"empty body", "/replay", "", "request body must contain a CSV batch"},
		{"zero shards", "/replay?shards=0", scenarioCSV, "shards must be a positive integer"},
		{"non numeric shards", "/replay?shards=many", scenarioCSV, "shards must be a positive integer"},
		{"unknown format", "/replay?format=xml", scenarioCSV, "format must be json or csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := SetUpTestRequest(TestRequest{
				Router:  setupRouter(testConfig()),
				Method:  http.MethodPost,
				Route:   tt.route,
				Payload: strings.NewReader(tt.body),
			})
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.error)
			assert.Contains(t, resp.Body.String(), `"code":"INVALID_INPUT"`)
		})
	}
}

func TestReplay_RequestsDoNotShareState(t *testing.T) {
	router := setupRouter(testConfig())
	for i := 0; i < 2; i++ {
		resp := SetUpTestRequest(TestRequest{
			Router:  router,
			Method:  http.MethodPost,
			Route:   "/replay",
			Payload: strings.NewReader("deposit,1,1,10\n"),
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var report replayResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		require.Len(t, report.Accounts, 1)
		assert.Equal(t, "10", report.Accounts[0].Total)
		assert.Equal(t, 0, report.Failed)
	}
}

func TestReplay_SecureMode(t *testing.T) {
	cnf := testConfig()
	cnf.Server = config.ServerConfig{Secure: true, SecretKey: "s3cret"}
	router := setupRouter(cnf)

	resp := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/replay", Payload: strings.NewReader(scenarioCSV)})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = SetUpTestRequest(TestRequest{
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/replay",
		Payload: strings.NewReader(scenarioCSV),
		Header:  map[string]string{"X-Tally-Key": "s3cret"},
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}
