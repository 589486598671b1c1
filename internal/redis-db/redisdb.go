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
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds a client for either a single instance or a cluster.
type Redis struct {
	addresses []string
	client    redis.UniversalClient
}

// ParseRedisURL turns a configured address into client options. It accepts bare
// host:port pairs (e.g. redis:6379) as well as redis:// and rediss:// URLs, including
// URLs that carry a password without a username.
func ParseRedisURL(rawURL string, skipTLSVerify bool) (*redis.Options, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	// Don't modify docker-style addresses (e.g. redis:6379)
	if !strings.Contains(rawURL, "//") && !strings.Contains(rawURL, "@") {
		return &redis.Options{Addr: rawURL}, nil
	}

	// redis://password@host:port has no colon before the password
	for _, scheme := range []string{"redis://", "rediss://"} {
		if !strings.HasPrefix(rawURL, scheme) || !strings.Contains(rawURL, "@") {
			continue
		}
		auth, host, _ := strings.Cut(strings.TrimPrefix(rawURL, scheme), "@")
		if !strings.Contains(auth, ":") {
			rawURL = fmt.Sprintf("%s:%s@%s", scheme, auth, host)
		}
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address %q: %w", rawURL, err)
	}

	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig.InsecureSkipVerify = true
	}
	return opts, nil
}

// NewRedisClient connects to Redis. dns is a single address, or a comma separated
// list of addresses for a cluster.
//
// Parameters:
// - ctx context.Context: Bounds the initial ping.
// - dns string: The configured address or addresses.
// - skipTLSVerify bool: Whether to skip TLS certificate verification.
//
// Returns:
// - *Redis: A new Redis client wrapper.
// - error: An error if an address is invalid or the server does not answer.
func NewRedisClient(ctx context.Context, dns string, skipTLSVerify bool) (*Redis, error) {
	var addresses []string
	for _, addr := range strings.Split(dns, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addresses = append(addresses, addr)
		}
	}
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	var client redis.UniversalClient
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0], skipTLSVerify)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
	} else {
		clusterOpts := &redis.ClusterOptions{}
		for _, addr := range addresses {
			opts, err := ParseRedisURL(addr, skipTLSVerify)
			if err != nil {
				return nil, err
			}
			clusterOpts.Addrs = append(clusterOpts.Addrs, opts.Addr)
			if clusterOpts.Password == "" {
				clusterOpts.Username, clusterOpts.Password = opts.Username, opts.Password
			}
			if opts.TLSConfig != nil && clusterOpts.TLSConfig == nil {
				clusterOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: skipTLSVerify}
			}
		}
		client = redis.NewClusterClient(clusterOpts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{addresses: addresses, client: client}, nil
}

// Client returns the underlying universal client.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
