// Package filter narrows the in-memory query-log set for the history
// view. Filtering is a stable subsequence selection: it never reorders.
package filter

import (
	"strings"
	"time"

	"github.com/rag-monitor/dashboard/internal/backend"
)

// Criteria is a conjunction of optional predicates. A zero-value field
// leaves its dimension unconstrained; present fields are combined with
// logical AND.
type Criteria struct {
	Search        string
	Person        string
	Team          string
	Model         string
	KnowledgeBase string
	Status        string
	StartDate     time.Time
	EndDate       time.Time
}

func (c Criteria) IsZero() bool {
	return c.Search == "" && c.Person == "" && c.Team == "" && c.Model == "" &&
		c.KnowledgeBase == "" && c.Status == "" && c.StartDate.IsZero() && c.EndDate.IsZero()
}

// Apply returns the records matching every present criterion, preserving
// relative order. Text search is case-insensitive substring containment
// against the query text only. Date bounds are inclusive; an end date
// given as a bare calendar day covers that whole day.
func Apply(c Criteria, records []backend.QueryLogRecord) []backend.QueryLogRecord {
	if c.IsZero() {
		return records
	}

	search := strings.ToLower(c.Search)
	end := c.EndDate
	if !end.IsZero() {
		end = normalizeEnd(end)
	}

	out := make([]backend.QueryLogRecord, 0, len(records))
	for _, rec := range records {
		if search != "" && !strings.Contains(strings.ToLower(rec.QueryText), search) {
			continue
		}
		if c.Person != "" && rec.Person != c.Person {
			continue
		}
		if c.Team != "" && rec.Team != c.Team {
			continue
		}
		if c.Model != "" && rec.ModelID != c.Model {
			continue
		}
		if c.KnowledgeBase != "" && rec.KnowledgeBaseID != c.KnowledgeBase {
			continue
		}
		if c.Status != "" && string(rec.Status) != c.Status {
			continue
		}
		if !c.StartDate.IsZero() && rec.RequestTimestamp.Before(c.StartDate) {
			continue
		}
		if !end.IsZero() && rec.RequestTimestamp.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// normalizeEnd widens a bare calendar date to 23:59:59.999 of that day so
// records anywhere within the day stay inside the inclusive bound. An end
// bound carrying a clock component is used as given.
func normalizeEnd(t time.Time) time.Time {
	h, m, s := t.Clock()
	if h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0 {
		return t
	}
	return t.Add(24*time.Hour - time.Millisecond)
}
