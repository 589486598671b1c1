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

package middleware

import (
	"crypto/subtle"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/tally/config"
	"github.com/jerry-enebeli/tally/internal/apierror"
)

func abortWithError(c *gin.Context, err apierror.APIError) {
	c.AbortWithStatusJSON(apierror.MapErrorToHTTPStatus(err), err)
}

const (
	KeyHeader = "X-Tally-Key"
)

// RateLimitMiddleware creates a middleware for rate limiting using Tollbooth
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	if conf.RateLimit.RequestsPerSecond == nil || conf.RateLimit.Burst == nil {
		// Rate limiting is disabled
		return func(c *gin.Context) {
			c.Next()
		}
	}

	rps := *conf.RateLimit.RequestsPerSecond
	burst := *conf.RateLimit.Burst
	ttl := time.Hour
	if conf.RateLimit.CleanupIntervalSec != nil {
		ttl = time.Duration(*conf.RateLimit.CleanupIntervalSec) * time.Second
	}

	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{
		DefaultExpirationTTL: ttl,
	})
	lmt.SetBurst(burst)
	return func(c *gin.Context) {
		httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request)
		if httpError != nil {
			c.AbortWithStatusJSON(httpError.StatusCode, gin.H{"error": httpError.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware rejects requests whose X-Tally-Key header does not match
// the configured secret key.
func SecretKeyAuthMiddleware(conf config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if conf.SecretKey == "" {
			abortWithError(c, apierror.NewAPIError(apierror.ErrInternalServer, "Secret key is not configured", nil))
			return
		}

		clientSecret := c.GetHeader(KeyHeader)
		if clientSecret == "" {
			abortWithError(c, apierror.NewAPIError(apierror.ErrUnauthorized, "Missing secret key", nil))
			return
		}

		if !secureCompare(conf.SecretKey, clientSecret) {
			abortWithError(c, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid secret key", nil))
			return
		}

		c.Next()
	}
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
