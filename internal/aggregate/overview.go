package aggregate

import (
	"math"

	"github.com/rag-monitor/dashboard/internal/backend"
)

// Overview is the rollup card row at the top of the user-requests tab.
type Overview struct {
	TotalQueriesToday      int
	ActiveUsersToday       int
	AvgQueriesPerUser      int
	AvgResponseTimeSeconds float64
}

// OverviewOf rolls user metrics up into today's headline figures. A user
// is active when they issued at least one query today; the response-time
// average runs over active users only.
func (a *Aggregator) OverviewOf(users map[string]*UserMetric) Overview {
	var o Overview
	var respSum float64

	for _, metric := range users {
		today := metric.Daily[DailyWindow-1]
		o.TotalQueriesToday += today
		if today > 0 {
			o.ActiveUsersToday++
			respSum += metric.AvgResponseTimeSeconds
		}
	}

	if o.ActiveUsersToday > 0 {
		o.AvgQueriesPerUser = int(math.Round(float64(o.TotalQueriesToday) / float64(o.ActiveUsersToday)))
		o.AvgResponseTimeSeconds = respSum / float64(o.ActiveUsersToday)
	}
	return o
}

// HourlyHistogram counts today's records per hour of day.
func (a *Aggregator) HourlyHistogram(records []backend.QueryLogRecord) [24]int {
	var hours [24]int
	todayKey := a.Today().Format(dayKeyLayout)

	for _, rec := range records {
		local := rec.RequestTimestamp.In(a.loc)
		if local.Format(dayKeyLayout) != todayKey {
			continue
		}
		hours[local.Hour()]++
	}
	return hours
}

// ModelUsageToday counts today's records per model.
func (a *Aggregator) ModelUsageToday(records []backend.QueryLogRecord) map[string]int {
	usage := make(map[string]int)
	todayKey := a.Today().Format(dayKeyLayout)

	for _, rec := range records {
		if rec.ModelID == "" {
			continue
		}
		if a.dayKey(rec.RequestTimestamp) != todayKey {
			continue
		}
		usage[rec.ModelID]++
	}
	return usage
}

// DailyTotals sums the last ten day buckets across all users, oldest
// first, for the requests trend chart. The oldest of the eleven slots is
// dropped, matching the chart's ten-day axis.
func DailyTotals(users map[string]*UserMetric) [DailyWindow - 1]int {
	var totals [DailyWindow - 1]int
	for _, metric := range users {
		for i := 1; i < DailyWindow; i++ {
			totals[i-1] += metric.Daily[i]
		}
	}
	return totals
}
