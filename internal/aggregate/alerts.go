package aggregate

import (
	"fmt"
	"sort"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert flags an entity approaching or exceeding its quota.
type Alert struct {
	Severity Severity `json:"severity"`
	Scope    string   `json:"scope"`
	Entity   string   `json:"entity"`
	Window   string   `json:"window"`
	Percent  int      `json:"percent"`
	Message  string   `json:"message"`
}

// UserAlerts flags users whose daily consumption reaches the warning
// threshold; above the critical threshold the severity escalates. Output
// is sorted by user for stable rendering.
func UserAlerts(users map[string]*UserMetric, dailyLimit, warning, critical int) []Alert {
	var alerts []Alert
	for person, metric := range users {
		pct := QuotaPercent(metric.Daily[DailyWindow-1], dailyLimit)
		if pct < warning {
			continue
		}
		alerts = append(alerts, Alert{
			Severity: severityFor(pct, critical),
			Scope:    "user",
			Entity:   person,
			Window:   "daily",
			Percent:  pct,
			Message:  fmt.Sprintf("%s is at %d%% of daily limit", person, pct),
		})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Entity < alerts[j].Entity })
	return alerts
}

// TeamAlerts flags teams against their monthly quota.
func TeamAlerts(teams map[string]*TeamMetric, monthlyLimit, warning, critical int) []Alert {
	var alerts []Alert
	for team, metric := range teams {
		pct := QuotaPercent(metric.Monthly, monthlyLimit)
		if pct < warning {
			continue
		}
		alerts = append(alerts, Alert{
			Severity: severityFor(pct, critical),
			Scope:    "team",
			Entity:   team,
			Window:   "monthly",
			Percent:  pct,
			Message:  fmt.Sprintf("%s has reached %d%% of monthly limit", team, pct),
		})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Entity < alerts[j].Entity })
	return alerts
}

func severityFor(pct, critical int) Severity {
	if pct > critical {
		return SeverityCritical
	}
	return SeverityWarning
}
