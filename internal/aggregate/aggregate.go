// Package aggregate turns the flat query-log working set into the
// per-user, per-team and per-model views the dashboard tables and charts
// consume. All bucketing happens in a configurable location; the default
// is the viewer's local zone, which downstream day alignment relies on.
package aggregate

import (
	"math"
	"time"

	"github.com/rag-monitor/dashboard/internal/backend"
)

// DailyWindow is the length of the per-day counter sequence. Index
// DailyWindow-1 is today, index 0 is ten days ago.
const DailyWindow = 11

const dayKeyLayout = "2006-01-02"

// UserMetric holds the derived counters for one person. Daily covers the
// last 11 calendar days; Monthly counts every record for the person in
// the fetched window and is computed independently of Daily.
type UserMetric struct {
	Daily                  [DailyWindow]int
	Monthly                int
	AvgResponseTimeSeconds float64
}

// TeamMetric has the same shape as UserMetric and is obtained by summing
// the metrics of the team's members.
type TeamMetric struct {
	Daily                  [DailyWindow]int
	Monthly                int
	AvgResponseTimeSeconds float64
	MemberCount            int
}

// Aggregator buckets records by calendar day. The location and clock are
// injectable so tests can pin a zone and a "today"; production uses the
// process-local zone and wall clock.
type Aggregator struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location, now func() time.Time) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{loc: loc, now: now}
}

func (a *Aggregator) dayKey(t time.Time) string {
	return t.In(a.loc).Format(dayKeyLayout)
}

// DayStart truncates a timestamp to midnight in the bucketing location.
func (a *Aggregator) DayStart(t time.Time) time.Time {
	t = t.In(a.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

// Today returns the current day truncated to midnight in the bucketing
// location. Callers use it to align fetch windows with the day buckets.
func (a *Aggregator) Today() time.Time {
	now := a.now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}

type userAccumulator struct {
	dayCounts map[string]int
	monthly   int
	procSumMs int
	procCount int
}

// ByUser computes a UserMetric per person. Totals are independent of
// record order; only team membership (see Membership) is order-sensitive.
func (a *Aggregator) ByUser(records []backend.QueryLogRecord) map[string]*UserMetric {
	accs := make(map[string]*userAccumulator)

	for _, rec := range records {
		if rec.Person == "" {
			continue
		}
		acc := accs[rec.Person]
		if acc == nil {
			acc = &userAccumulator{dayCounts: make(map[string]int)}
			accs[rec.Person] = acc
		}

		acc.dayCounts[a.dayKey(rec.RequestTimestamp)]++
		acc.monthly++
		if rec.ProcessingTimeMs != nil {
			acc.procSumMs += *rec.ProcessingTimeMs
			acc.procCount++
		}
	}

	today := a.Today()
	out := make(map[string]*UserMetric, len(accs))
	for person, acc := range accs {
		metric := &UserMetric{Monthly: acc.monthly}
		for i := 0; i < DailyWindow; i++ {
			day := today.AddDate(0, 0, -(DailyWindow - 1 - i))
			metric.Daily[i] = acc.dayCounts[day.Format(dayKeyLayout)]
		}
		if acc.procCount > 0 {
			metric.AvgResponseTimeSeconds = float64(acc.procSumMs) / float64(acc.procCount) / 1000
		}
		out[person] = metric
	}
	return out
}

// Membership assigns each person to the team seen on their first record
// in iteration order. Later records with a different team value are
// ignored for membership, though they still count toward the person's
// own metrics.
func (a *Aggregator) Membership(records []backend.QueryLogRecord) map[string]string {
	membership := make(map[string]string)
	for _, rec := range records {
		if rec.Person == "" {
			continue
		}
		if _, seen := membership[rec.Person]; !seen {
			membership[rec.Person] = rec.Team
		}
	}
	return membership
}

// ByTeam sums member UserMetrics into a TeamMetric per team. The team
// response-time figure is the mean of member averages, matching the
// per-member weighting of the user table.
func (a *Aggregator) ByTeam(records []backend.QueryLogRecord) map[string]*TeamMetric {
	users := a.ByUser(records)
	membership := a.Membership(records)

	out := make(map[string]*TeamMetric)
	respSums := make(map[string]float64)

	for person, metric := range users {
		team := membership[person]
		tm := out[team]
		if tm == nil {
			tm = &TeamMetric{}
			out[team] = tm
		}
		for i := 0; i < DailyWindow; i++ {
			tm.Daily[i] += metric.Daily[i]
		}
		tm.Monthly += metric.Monthly
		tm.MemberCount++
		respSums[team] += metric.AvgResponseTimeSeconds
	}

	for team, tm := range out {
		if tm.MemberCount > 0 {
			tm.AvgResponseTimeSeconds = respSums[team] / float64(tm.MemberCount)
		}
	}
	return out
}

// ByModelTeam counts records per model per team, using the team recorded
// on each row.
func (a *Aggregator) ByModelTeam(records []backend.QueryLogRecord) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, rec := range records {
		if rec.ModelID == "" {
			continue
		}
		teams := out[rec.ModelID]
		if teams == nil {
			teams = make(map[string]int)
			out[rec.ModelID] = teams
		}
		teams[rec.Team]++
	}
	return out
}

// QuotaPercent is the percentage-of-limit indicator: round-half-up, never
// clamped, so an over-quota entity reads e.g. 120%.
func QuotaPercent(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(total) / float64(limit)))
}
