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
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/tally"
	"github.com/jerry-enebeli/tally/internal/apierror"
	"github.com/jerry-enebeli/tally/internal/export"
)

func abortWithError(c *gin.Context, err apierror.APIError) {
	c.AbortWithStatusJSON(apierror.MapErrorToHTTPStatus(err), err)
}

// Replay applies the CSV batch in the request body to fresh ledgers.
// Query parameters: shards overrides the configured shard count; format=csv returns
// the account table instead of the JSON report.
func (a Api) Replay(c *gin.Context) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		abortWithError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "request body must contain a CSV batch", nil))
		return
	}

	runner := a.tally
	if raw, ok := c.GetQuery("shards"); ok {
		shards, err := strconv.Atoi(raw)
		if err != nil || shards < 1 {
			abortWithError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "shards must be a positive integer", raw))
			return
		}
		runner = runner.WithShards(shards)
	}

	format := c.DefaultQuery("format", export.FormatJSON)
	if format != export.FormatJSON && format != export.FormatCSV {
		abortWithError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "format must be json or csv", format))
		return
	}

	report, err := runner.Replay(c.Request.Context(), c.Request.Body)
	if err != nil && !errors.Is(err, tally.ErrReplayStopped) {
		abortWithError(c, apierror.NewAPIError(apierror.ErrUnprocessable, "batch could not be read", err.Error()))
		return
	}

	if format == export.FormatCSV {
		c.Header("Content-Type", "text/csv")
		c.Header("X-Tally-Run-Id", report.RunID)
		c.Status(http.StatusOK)
		if err := export.Write(c.Writer, export.FormatCSV, report.Accounts, runner.Precision()); err != nil {
			_ = c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, report)
}
