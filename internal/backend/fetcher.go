package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/metrics"
	"github.com/rag-monitor/dashboard/pkg/logger"
)

const (
	// DefaultPageSize is the per-page limit of the fetch loop.
	DefaultPageSize = 1000
	// DefaultMaxPages caps a single fetch sequence at 50 pages
	// (50,000 records with the default page size).
	DefaultMaxPages = 50
)

// FetchResult is the outcome of one complete fetch sequence. Truncated
// distinguishes a complete working set from a usable-but-partial one,
// either because the page ceiling was hit or because a mid-sequence page
// request failed.
type FetchResult struct {
	Records   []QueryLogRecord
	Truncated bool
	Reason    string
	Pages     int
}

// FetchAllLogs assembles the full query-log set for a bounded date range
// by walking offsets sequentially. A page shorter than the page size, or
// an empty page, signals end of data. Failures never abort: whatever has
// been accumulated is returned with the truncation flag set.
func (c *Client) FetchAllLogs(ctx context.Context, start, end time.Time, pageSize, maxPages int) FetchResult {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var result FetchResult
	offset := 0

	for {
		page, err := c.QueryLogs(ctx, LogQuery{
			StartDate: start,
			EndDate:   end,
			Limit:     pageSize,
			Offset:    offset,
		})
		if err != nil {
			result.Truncated = true
			result.Reason = "page request failed: " + err.Error()
			logger.Warn("Log fetch aborted, returning partial result",
				zap.Int("pages", result.Pages),
				zap.Int("records", len(result.Records)),
				zap.Error(err),
			)
			break
		}

		result.Pages++
		result.Records = append(result.Records, page...)

		if len(page) < pageSize {
			break
		}
		if result.Pages >= maxPages {
			result.Truncated = true
			result.Reason = "page ceiling reached"
			logger.Warn("Log fetch hit page ceiling, result is truncated",
				zap.Int("pages", result.Pages),
				zap.Int("records", len(result.Records)),
			)
			break
		}
		offset += pageSize
	}

	metrics.FetchPages.Observe(float64(result.Pages))
	if result.Truncated {
		metrics.FetchTruncated.Inc()
	}
	return result
}
