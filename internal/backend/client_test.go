package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestQueryLogsDecodesAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query-logs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"query_id": "q1", "request_timestamp": "2026-03-15T09:30:00Z",
			 "person": "alice", "team": "platform", "model_id": "claude-3",
			 "user_query": "how do I", "status": "success",
			 "tokens_used": 120, "processing_time_ms": 1500.7},
			{"id": "q2", "timestamp": "2026-03-15 10:00:00",
			 "person_name": "bob", "iam_group": "data", "model": "titan",
			 "query": "what is", "status": "failed",
			 "tokens_total": 80, "response_time_ms": 900,
			 "error_message": "timeout"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	records, err := client.QueryLogs(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.ID != "q1" || first.Person != "alice" || first.Team != "platform" {
		t.Errorf("canonical fields wrong: %+v", first)
	}
	if first.Status != StatusCompleted {
		t.Errorf("status = %q, want COMPLETED", first.Status)
	}
	if first.ProcessingTimeMs == nil || *first.ProcessingTimeMs != 1500 {
		t.Errorf("processing time = %v, want 1500", first.ProcessingTimeMs)
	}

	// Second record exercises the alias spellings.
	second := records[1]
	if second.ID != "q2" || second.Person != "bob" || second.Team != "data" || second.ModelID != "titan" {
		t.Errorf("alias normalization wrong: %+v", second)
	}
	if second.Status != StatusError {
		t.Errorf("status = %q, want ERROR", second.Status)
	}
	if second.TokensUsed != 80 {
		t.Errorf("tokens = %d, want 80", second.TokensUsed)
	}
	if second.ProcessingTimeMs == nil || *second.ProcessingTimeMs != 900 {
		t.Errorf("response_time_ms alias not applied: %v", second.ProcessingTimeMs)
	}
	if second.ErrorMessage != "timeout" {
		t.Errorf("error message = %q", second.ErrorMessage)
	}
}

func TestQueryLogsZonelessTimestampInClientLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"query_id": "late", "person": "alice", "request_timestamp": "2026-03-15T23:30:00"},
			{"query_id": "pinned", "person": "alice", "request_timestamp": "2026-03-15T23:30:00+00:00"}
		]}`))
	}))
	defer server.Close()

	loc := time.FixedZone("UTC+2", 2*60*60)
	client := NewClient(server.URL, "", 5*time.Second, loc)
	records, err := client.QueryLogs(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}

	// A naive timestamp is wall-clock time in the viewing zone. Parsed
	// as UTC it would read 01:30 on the 16th and land in the wrong day
	// bucket.
	want := time.Date(2026, 3, 15, 23, 30, 0, 0, loc)
	if !records[0].RequestTimestamp.Equal(want) {
		t.Errorf("naive timestamp = %v, want %v", records[0].RequestTimestamp, want)
	}
	if day := records[0].RequestTimestamp.In(loc).Day(); day != 15 {
		t.Errorf("naive timestamp bucketed into day %d, want 15", day)
	}

	// An offset-bearing timestamp keeps its own offset.
	wantPinned := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	if !records[1].RequestTimestamp.Equal(wantPinned) {
		t.Errorf("offset timestamp = %v, want %v", records[1].RequestTimestamp, wantPinned)
	}
}

func TestQueryLogsMissingProcessingTimeStaysNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"query_id": "q1", "person": "alice"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	records, err := client.QueryLogs(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}
	if records[0].ProcessingTimeMs != nil {
		t.Errorf("missing timing should stay nil, got %d", *records[0].ProcessingTimeMs)
	}
}

func TestQueryLogsBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	_, err := client.QueryLogs(context.Background(), LogQuery{})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("want BackendError, got %T: %v", err, err)
	}
	if be.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", be.StatusCode)
	}
}

func TestQueryLogsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "", time.Second, time.UTC)
	_, err := client.QueryLogs(context.Background(), LogQuery{})

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("want NetworkError, got %T: %v", err, err)
	}
}

func TestQueryLogsMissingDataArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 0}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	_, err := client.QueryLogs(context.Background(), LogQuery{})

	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("want MalformedResponseError, got %T: %v", err, err)
	}
}

func TestQueryLogsParamEncoding(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	_, err := client.QueryLogs(context.Background(), LogQuery{
		Person:    "alice",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Limit:     1000,
		Offset:    2000,
	})
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}

	want := "limit=1000&offset=2000&person=alice&start_date=2026-03-01"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestQueryLogDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query-logs/q42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"query_id": "q42", "person": "alice",
			"llm_response": "the answer",
			"conversation_id_bedrock": "conv-1",
			"tokens_input": 10, "tokens_output": 20, "tokens_total": 30,
			"tools_used": ["search", "lookup"]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	detail, err := client.QueryLogDetail(context.Background(), "q42")
	if err != nil {
		t.Fatalf("QueryLogDetail: %v", err)
	}
	if detail.ID != "q42" || detail.Response != "the answer" {
		t.Errorf("detail = %+v", detail)
	}
	if detail.ConversationID != "conv-1" {
		t.Errorf("conversation alias not applied: %q", detail.ConversationID)
	}
	if detail.TokensTotal != 30 {
		t.Errorf("tokens total = %d", detail.TokensTotal)
	}
	if string(detail.ToolsUsed) != `["search", "lookup"]` {
		t.Errorf("tools passthrough = %s", detail.ToolsUsed)
	}
}

func TestQueryLogDetailNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	_, err := client.QueryLogDetail(context.Background(), "missing")

	var be *BackendError
	if !errors.As(err, &be) || be.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 BackendError, got %v", err)
	}
}

func TestTrustAnalyticsSeparateBase(t *testing.T) {
	trustServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trust-analytics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("days") != "7" {
			t.Errorf("days = %q, want 7", r.URL.Query().Get("days"))
		}
		w.Write([]byte(`{"indicators": {"avg": 0.91}, "tables": [], "charts": {}}`))
	}))
	defer trustServer.Close()

	client := NewClient("http://main.invalid", trustServer.URL, 5*time.Second, time.UTC)
	trust, err := client.TrustAnalytics(context.Background(), 7)
	if err != nil {
		t.Fatalf("TrustAnalytics: %v", err)
	}
	if string(trust.Indicators) != `{"avg": 0.91}` {
		t.Errorf("indicators passthrough = %s", trust.Indicators)
	}
}

func TestAnalytics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analytics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("start_date") != "2026-03-01" {
			t.Errorf("start_date = %q", r.URL.Query().Get("start_date"))
		}
		w.Write([]byte(`{
			"personStats": [{"person": "alice", "count": 40, "avg_response_time": 1800}],
			"teamStats": [{"team": "platform", "count": 90, "avg_response_time": 2100}],
			"modelStats": [{"model_id": "claude-3", "count": 70}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	summary, err := client.Analytics(context.Background(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if len(summary.PersonStats) != 1 || summary.PersonStats[0].Person != "alice" {
		t.Errorf("person stats = %+v", summary.PersonStats)
	}
	if summary.TeamStats[0].AvgResponseTimeMs != 2100 {
		t.Errorf("team avg = %v", summary.TeamStats[0].AvgResponseTimeMs)
	}
}

func TestAnalyticsMissingStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, time.UTC)
	_, err := client.Analytics(context.Background(), time.Time{}, time.Time{})

	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("want MalformedResponseError, got %v", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"", StatusCompleted},
		{"completed", StatusCompleted},
		{"SUCCESS", StatusCompleted},
		{"ok", StatusCompleted},
		{"error", StatusError},
		{"Failed", StatusError},
		{"throttled", Status("THROTTLED")},
	}
	for _, tt := range tests {
		if got := normalizeStatus(tt.raw); got != tt.want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
