package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/metrics"
	"github.com/rag-monitor/dashboard/pkg/logger"
)

const dateParamLayout = "2006-01-02"

// Client issues parameterized requests against the analytics API and the
// trust-scoring API. A call either succeeds or its error surfaces to the
// caller: no retry, no backoff, no caching at this layer.
type Client struct {
	baseURL    string
	trustURL   string
	loc        *time.Location
	httpClient *http.Client
}

// NewClient builds a client. Zoneless wire timestamps are interpreted in
// loc, which must match the aggregation location so day buckets line up;
// nil means the process-local zone.
func NewClient(baseURL, trustURL string, timeout time.Duration, loc *time.Location) *Client {
	if trustURL == "" {
		trustURL = baseURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:  baseURL,
		trustURL: trustURL,
		loc:      loc,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) call(ctx context.Context, base, endpoint string, params url.Values) ([]byte, error) {
	target := base + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestTotal.WithLabelValues(endpoint, "network_error").Inc()
		logger.Warn("Backend call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequestTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		logger.Warn("Backend returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &BackendError{StatusCode: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendRequestTotal.WithLabelValues(endpoint, "read_error").Inc()
		return nil, &NetworkError{Err: err}
	}

	metrics.BackendRequestTotal.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

// Analytics fetches the summary aggregates for the given date range.
func (c *Client) Analytics(ctx context.Context, start, end time.Time) (*AnalyticsSummary, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start_date", start.Format(dateParamLayout))
	}
	if !end.IsZero() {
		params.Set("end_date", end.Format(dateParamLayout))
	}

	body, err := c.call(ctx, c.baseURL, "/analytics", params)
	if err != nil {
		return nil, err
	}

	var summary AnalyticsSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, &MalformedResponseError{Endpoint: "/analytics", Reason: err.Error()}
	}
	if summary.PersonStats == nil && summary.TeamStats == nil && summary.ModelStats == nil {
		return nil, &MalformedResponseError{Endpoint: "/analytics", Reason: "missing stats arrays"}
	}
	return &summary, nil
}

// Filters fetches the dropdown option lists.
func (c *Client) Filters(ctx context.Context) (*FilterOptions, error) {
	body, err := c.call(ctx, c.baseURL, "/filters", nil)
	if err != nil {
		return nil, err
	}

	var options FilterOptions
	if err := json.Unmarshal(body, &options); err != nil {
		return nil, &MalformedResponseError{Endpoint: "/filters", Reason: err.Error()}
	}
	return &options, nil
}

// QueryLogs fetches one page of query-log rows and normalizes each row
// into the canonical record shape.
func (c *Client) QueryLogs(ctx context.Context, q LogQuery) ([]QueryLogRecord, error) {
	params := url.Values{}
	if q.Person != "" {
		params.Set("person", q.Person)
	}
	if q.Team != "" {
		params.Set("team", q.Team)
	}
	if q.ModelID != "" {
		params.Set("model_id", q.ModelID)
	}
	if q.KnowledgeBaseID != "" {
		params.Set("knowledge_base_id", q.KnowledgeBaseID)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if !q.StartDate.IsZero() {
		params.Set("start_date", q.StartDate.Format(dateParamLayout))
	}
	if !q.EndDate.IsZero() {
		params.Set("end_date", q.EndDate.Format(dateParamLayout))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	body, err := c.call(ctx, c.baseURL, "/query-logs", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []wireRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Endpoint: "/query-logs", Reason: err.Error()}
	}
	if payload.Data == nil {
		return nil, &MalformedResponseError{Endpoint: "/query-logs", Reason: "missing data array"}
	}

	records := make([]QueryLogRecord, 0, len(payload.Data))
	for _, w := range payload.Data {
		records = append(records, w.normalize(c.loc))
	}
	return records, nil
}

// QueryLogDetail fetches the full single-record view including trust and
// diagnostic passthrough fields.
func (c *Client) QueryLogDetail(ctx context.Context, id string) (*QueryLogDetail, error) {
	body, err := c.call(ctx, c.baseURL, "/query-logs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var w wireDetail
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &MalformedResponseError{Endpoint: "/query-logs/{id}", Reason: err.Error()}
	}
	detail := w.normalize(c.loc)
	if detail.ID == "" {
		return nil, &MalformedResponseError{Endpoint: "/query-logs/{id}", Reason: "missing record id"}
	}
	return &detail, nil
}

// TrustAnalytics fetches the pre-aggregated trust metrics for the last
// N days from the trust-scoring backend.
func (c *Client) TrustAnalytics(ctx context.Context, days int) (*TrustAnalytics, error) {
	params := url.Values{}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}

	body, err := c.call(ctx, c.trustURL, "/trust-analytics", params)
	if err != nil {
		return nil, err
	}

	var trust TrustAnalytics
	if err := json.Unmarshal(body, &trust); err != nil {
		return nil, &MalformedResponseError{Endpoint: "/trust-analytics", Reason: err.Error()}
	}
	return &trust, nil
}
