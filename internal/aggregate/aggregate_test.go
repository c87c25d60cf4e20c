package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rag-monitor/dashboard/internal/backend"
)

var testToday = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func testAggregator() *Aggregator {
	return New(time.UTC, func() time.Time {
		return testToday.Add(14 * time.Hour)
	})
}

func record(person, team string, daysAgo int, procMs *int) backend.QueryLogRecord {
	return backend.QueryLogRecord{
		ID:               person + "-rec",
		Person:           person,
		Team:             team,
		RequestTimestamp: testToday.AddDate(0, 0, -daysAgo).Add(9 * time.Hour),
		Status:           backend.StatusCompleted,
		ProcessingTimeMs: procMs,
	}
}

func intPtr(v int) *int { return &v }

func TestByUserDailyBuckets(t *testing.T) {
	agg := testAggregator()

	var records []backend.QueryLogRecord
	for i := 0; i < 3; i++ {
		records = append(records, record("alice", "platform", 2, nil))
	}
	for i := 0; i < 5; i++ {
		records = append(records, record("alice", "platform", 0, nil))
	}

	users := agg.ByUser(records)
	alice := users["alice"]
	if alice == nil {
		t.Fatal("expected metrics for alice")
	}

	if got := alice.Daily[DailyWindow-1]; got != 5 {
		t.Errorf("today bucket = %d, want 5", got)
	}
	if got := alice.Daily[DailyWindow-3]; got != 3 {
		t.Errorf("two-days-ago bucket = %d, want 3", got)
	}
	if alice.Monthly != 8 {
		t.Errorf("monthly = %d, want 8", alice.Monthly)
	}
}

func TestByUserMonthlyIndependentOfDailyWindow(t *testing.T) {
	agg := testAggregator()

	// 20 days ago is outside the 11-day daily window but inside the
	// fetched month.
	records := []backend.QueryLogRecord{
		record("bob", "data", 20, nil),
		record("bob", "data", 0, nil),
	}

	users := agg.ByUser(records)
	bob := users["bob"]

	var dailySum int
	for _, n := range bob.Daily {
		dailySum += n
	}
	if dailySum != 1 {
		t.Errorf("daily sum = %d, want 1", dailySum)
	}
	if bob.Monthly != 2 {
		t.Errorf("monthly = %d, want 2", bob.Monthly)
	}
}

func TestByUserAverageSkipsMissingTimings(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("carol", "platform", 0, intPtr(2000)),
		record("carol", "platform", 0, intPtr(4000)),
		record("carol", "platform", 0, nil),
	}

	users := agg.ByUser(records)
	if got := users["carol"].AvgResponseTimeSeconds; got != 3.0 {
		t.Errorf("avg response time = %v, want 3.0", got)
	}
}

func TestByUserTotalsOrderIndependent(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("dave", "a", 0, intPtr(1000)),
		record("dave", "a", 1, nil),
		record("erin", "b", 0, intPtr(500)),
		record("dave", "a", 3, intPtr(3000)),
		record("erin", "b", 2, nil),
	}

	want := agg.ByUser(records)

	shuffled := make([]backend.QueryLogRecord, len(records))
	copy(shuffled, records)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	got := agg.ByUser(shuffled)
	for person, metric := range want {
		other := got[person]
		if other == nil {
			t.Fatalf("missing %s after shuffle", person)
		}
		if *metric != *other {
			t.Errorf("%s metrics differ after shuffle: %+v vs %+v", person, metric, other)
		}
	}
}

func TestMembershipFirstSeenWins(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("frank", "alpha", 2, nil),
		record("frank", "beta", 0, nil),
	}

	membership := agg.Membership(records)
	if membership["frank"] != "alpha" {
		t.Errorf("membership = %q, want alpha", membership["frank"])
	}
}

func TestMembershipFlipsUnderReorderingWhileTotalsHold(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("frank", "alpha", 2, intPtr(1000)),
		record("frank", "beta", 0, intPtr(3000)),
	}
	reversed := []backend.QueryLogRecord{records[1], records[0]}

	if got := agg.Membership(records)["frank"]; got != "alpha" {
		t.Errorf("membership = %q, want alpha", got)
	}
	// Reordering moves the beta record first, so membership follows it.
	if got := agg.Membership(reversed)["frank"]; got != "beta" {
		t.Errorf("membership after reorder = %q, want beta", got)
	}

	// Per-user totals are unaffected by the same reordering.
	a, b := agg.ByUser(records)["frank"], agg.ByUser(reversed)["frank"]
	if *a != *b {
		t.Errorf("totals differ under reorder: %+v vs %+v", a, b)
	}
}

func TestByTeamSumsMembers(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("gina", "core", 0, intPtr(2000)),
		record("gina", "core", 0, nil),
		record("hank", "core", 0, intPtr(4000)),
	}

	teams := agg.ByTeam(records)
	core := teams["core"]
	if core == nil {
		t.Fatal("expected metrics for core")
	}
	if core.Daily[DailyWindow-1] != 3 {
		t.Errorf("team today bucket = %d, want 3", core.Daily[DailyWindow-1])
	}
	if core.MemberCount != 2 {
		t.Errorf("member count = %d, want 2", core.MemberCount)
	}
	// Mean of member averages, not record-weighted: (2.0 + 4.0) / 2.
	if core.AvgResponseTimeSeconds != 3.0 {
		t.Errorf("team avg = %v, want 3.0", core.AvgResponseTimeSeconds)
	}
}

func TestByModelTeamUsesRecordTeam(t *testing.T) {
	agg := testAggregator()

	// ivy's membership resolves to alpha, but her later record carries
	// beta; the model matrix counts the row's own team.
	records := []backend.QueryLogRecord{
		{Person: "ivy", Team: "alpha", ModelID: "claude-3", RequestTimestamp: testToday},
		{Person: "ivy", Team: "beta", ModelID: "claude-3", RequestTimestamp: testToday},
	}

	matrix := agg.ByModelTeam(records)
	if matrix["claude-3"]["alpha"] != 1 || matrix["claude-3"]["beta"] != 1 {
		t.Errorf("matrix = %v, want one count per team", matrix["claude-3"])
	}
}

func TestQuotaPercent(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{85, 100, 85},
		{120, 100, 120},
		{1, 3000, 0},
		{15, 3000, 1},
		{0, 100, 0},
		{50, 0, 0},
		{5, 200, 3},
	}

	for _, tt := range tests {
		if got := QuotaPercent(tt.total, tt.limit); got != tt.want {
			t.Errorf("QuotaPercent(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestOverviewOf(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("jack", "a", 0, intPtr(1000)),
		record("jack", "a", 0, intPtr(1000)),
		record("kate", "a", 0, intPtr(3000)),
		record("liam", "a", 5, nil),
	}

	users := agg.ByUser(records)
	o := agg.OverviewOf(users)

	if o.TotalQueriesToday != 3 {
		t.Errorf("total today = %d, want 3", o.TotalQueriesToday)
	}
	if o.ActiveUsersToday != 2 {
		t.Errorf("active users = %d, want 2", o.ActiveUsersToday)
	}
	if o.AvgQueriesPerUser != 2 {
		t.Errorf("avg queries per user = %d, want 2", o.AvgQueriesPerUser)
	}
	if o.AvgResponseTimeSeconds != 2.0 {
		t.Errorf("avg response = %v, want 2.0", o.AvgResponseTimeSeconds)
	}
}

func TestHourlyHistogramTodayOnly(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		{Person: "mia", RequestTimestamp: testToday.Add(9 * time.Hour)},
		{Person: "mia", RequestTimestamp: testToday.Add(9*time.Hour + 30*time.Minute)},
		{Person: "mia", RequestTimestamp: testToday.Add(17 * time.Hour)},
		{Person: "mia", RequestTimestamp: testToday.AddDate(0, 0, -1).Add(9 * time.Hour)},
	}

	hours := agg.HourlyHistogram(records)
	if hours[9] != 2 {
		t.Errorf("hour 9 = %d, want 2", hours[9])
	}
	if hours[17] != 1 {
		t.Errorf("hour 17 = %d, want 1", hours[17])
	}

	var total int
	for _, n := range hours {
		total += n
	}
	if total != 3 {
		t.Errorf("histogram total = %d, want 3 (yesterday excluded)", total)
	}
}

func TestDailyTotalsDropsOldestSlot(t *testing.T) {
	agg := testAggregator()

	records := []backend.QueryLogRecord{
		record("nina", "a", DailyWindow-1, nil),
		record("nina", "a", 0, nil),
	}

	totals := DailyTotals(agg.ByUser(records))
	if totals[len(totals)-1] != 1 {
		t.Errorf("today slot = %d, want 1", totals[len(totals)-1])
	}

	var sum int
	for _, n := range totals {
		sum += n
	}
	if sum != 1 {
		t.Errorf("trend sum = %d, want 1 (oldest slot dropped)", sum)
	}
}

func TestAlerts(t *testing.T) {
	users := map[string]*UserMetric{
		"quiet":    {Daily: dailyWithToday(10)},
		"warned":   {Daily: dailyWithToday(85)},
		"critical": {Daily: dailyWithToday(120)},
	}

	alerts := UserAlerts(users, 100, 80, 90)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	// Sorted by entity: critical before warned.
	if alerts[0].Entity != "critical" || alerts[0].Severity != SeverityCritical {
		t.Errorf("alerts[0] = %+v, want critical user", alerts[0])
	}
	if alerts[0].Percent != 120 {
		t.Errorf("percent = %d, want unclamped 120", alerts[0].Percent)
	}
	if alerts[1].Entity != "warned" || alerts[1].Severity != SeverityWarning {
		t.Errorf("alerts[1] = %+v, want warned user", alerts[1])
	}

	teams := map[string]*TeamMetric{
		"busy": {Monthly: 14000},
		"idle": {Monthly: 100},
	}
	teamAlerts := TeamAlerts(teams, 15000, 80, 90)
	if len(teamAlerts) != 1 {
		t.Fatalf("got %d team alerts, want 1", len(teamAlerts))
	}
	if teamAlerts[0].Entity != "busy" || teamAlerts[0].Window != "monthly" {
		t.Errorf("team alert = %+v", teamAlerts[0])
	}
}

func dailyWithToday(n int) [DailyWindow]int {
	var d [DailyWindow]int
	d[DailyWindow-1] = n
	return d
}
