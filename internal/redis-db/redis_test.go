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

package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		skipTLS      bool
		wantAddr     string
		wantPassword string
		wantTLS      bool
		wantErr      bool
	}{
		{name: "docker style", url: "redis:6379", wantAddr: "redis:6379"},
		{name: "url with password", url: "redis://:password123@localhost:6379", wantAddr: "localhost:6379", wantPassword: "password123"},
		{name: "password without colon", url: "redis://secret@localhost:6379", wantAddr: "localhost:6379", wantPassword: "secret"},
		{name: "tls url", url: "rediss://:pw@cache.example.com:6380", wantAddr: "cache.example.com:6380", wantPassword: "pw", wantTLS: true},
		{name: "tls url skipping verification", url: "rediss://:pw@cache.example.com:6380", skipTLS: true, wantAddr: "cache.example.com:6380", wantPassword: "pw", wantTLS: true},
		{name: "empty", url: "  ", wantErr: true},
		{name: "unknown scheme", url: "http://localhost:6379", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, tt.skipTLS)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, got.Addr)
			assert.Equal(t, tt.wantPassword, got.Password)
			assert.Equal(t, tt.wantTLS, got.TLSConfig != nil)
			if tt.wantTLS {
				assert.Equal(t, tt.skipTLS, got.TLSConfig.InsecureSkipVerify)
			}
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisClient(context.Background(), mr.Addr(), false)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), " , ", false)
	assert.EqualError(t, err, "redis addresses list cannot be empty")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), addr, false)
	assert.Error(t, err)
}
