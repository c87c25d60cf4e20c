package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/rag-monitor/dashboard/internal/aggregate"
	"github.com/rag-monitor/dashboard/internal/backend"
	"github.com/rag-monitor/dashboard/internal/pagination"
)

// PageInfo is the navigation block attached to every paginated view.
type PageInfo struct {
	Page        int    `json:"page"`
	PageSize    int    `json:"pageSize"`
	TotalCount  int    `json:"totalCount"`
	TotalPages  int    `json:"totalPages"`
	HasPrevious bool   `json:"hasPrevious"`
	HasNext     bool   `json:"hasNext"`
	RangeLabel  string `json:"rangeLabel"`
	PageLabel   string `json:"pageLabel"`
}

// pageState binds a fresh navigation state to a dataset and walks it
// forward to the requested page. Walking, rather than assigning, keeps
// the state machine's only transitions (next, previous, reset) and
// clamps a stale page number at the last page.
func pageState(total, pageSize, page int) pagination.State {
	st := pagination.NewState(pageSize)
	st.Reset(total)
	for st.CurrentPage < page {
		if !st.Next() {
			break
		}
	}
	return st
}

func pageInfoOf(st pagination.State) PageInfo {
	return PageInfo{
		Page:        st.CurrentPage,
		PageSize:    st.PageSize,
		TotalCount:  st.TotalCount,
		TotalPages:  st.TotalPages(),
		HasPrevious: st.HasPrevious(),
		HasNext:     st.HasNext(),
		RangeLabel:  st.RangeLabel(),
		PageLabel:   st.PageLabel(),
	}
}

// UserRow is one line of the user quota table.
type UserRow struct {
	Person                 string  `json:"person"`
	Team                   string  `json:"team"`
	DailyTotal             int     `json:"dailyTotal"`
	DailyLimit             int     `json:"dailyLimit"`
	DailyPercent           int     `json:"dailyPercent"`
	MonthlyTotal           int     `json:"monthlyTotal"`
	MonthlyLimit           int     `json:"monthlyLimit"`
	MonthlyPercent         int     `json:"monthlyPercent"`
	AvgResponseTimeSeconds float64 `json:"avgResponseTimeSeconds"`
}

// TeamRow is one line of the team quota table. The daily limit is derived
// from the monthly one: round(monthly/30).
type TeamRow struct {
	Team                   string  `json:"team"`
	DailyTotal             int     `json:"dailyTotal"`
	DailyLimit             int     `json:"dailyLimit"`
	DailyPercent           int     `json:"dailyPercent"`
	MonthlyTotal           int     `json:"monthlyTotal"`
	MonthlyLimit           int     `json:"monthlyLimit"`
	MonthlyPercent         int     `json:"monthlyPercent"`
	AvgResponseTimeSeconds float64 `json:"avgResponseTimeSeconds"`
	MemberCount            int     `json:"memberCount"`
}

// TeamMemberRow is one line of the team-membership table: a member's
// monthly volume and their share of the team total.
type TeamMemberRow struct {
	Person         string `json:"person"`
	Team           string `json:"team"`
	MonthlyQueries int    `json:"monthlyQueries"`
	TeamShare      int    `json:"teamShare"`
}

// DetailRow is one line of the requests-details matrix: a user's last ten
// day counts, oldest first.
type DetailRow struct {
	Person string                         `json:"person"`
	Team   string                         `json:"team"`
	Daily  [aggregate.DailyWindow - 1]int `json:"daily"`
}

// ModelMatrixRow is one model's usage split across teams, column order
// given by ModelMatrixView.Teams.
type ModelMatrixRow struct {
	Model  string `json:"model"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// HistoryRow is the flattened query-log line of the history table.
type HistoryRow struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	Person              string    `json:"person"`
	Team                string    `json:"team"`
	Model               string    `json:"model"`
	KnowledgeBase       string    `json:"knowledgeBase"`
	Query               string    `json:"query"`
	Status              string    `json:"status"`
	Tokens              int       `json:"tokens"`
	ResponseTimeSeconds float64   `json:"responseTimeSeconds"`
	TrustScore          float64   `json:"trustScore"`
	TrustCategory       string    `json:"trustCategory,omitempty"`
	StrategyType        string    `json:"strategyType,omitempty"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
}

func buildUserRows(users map[string]*aggregate.UserMetric, membership map[string]string, limits quotaLimits) []UserRow {
	rows := make([]UserRow, 0, len(users))
	for person, metric := range users {
		daily := metric.Daily[aggregate.DailyWindow-1]
		rows = append(rows, UserRow{
			Person:                 person,
			Team:                   membership[person],
			DailyTotal:             daily,
			DailyLimit:             limits.daily,
			DailyPercent:           aggregate.QuotaPercent(daily, limits.daily),
			MonthlyTotal:           metric.Monthly,
			MonthlyLimit:           limits.monthly,
			MonthlyPercent:         aggregate.QuotaPercent(metric.Monthly, limits.monthly),
			AvgResponseTimeSeconds: metric.AvgResponseTimeSeconds,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Person < rows[j].Person })
	return rows
}

func buildTeamRows(teams map[string]*aggregate.TeamMetric, monthlyLimit int) []TeamRow {
	dailyLimit := int(math.Round(float64(monthlyLimit) / 30))

	rows := make([]TeamRow, 0, len(teams))
	for team, metric := range teams {
		daily := metric.Daily[aggregate.DailyWindow-1]
		rows = append(rows, TeamRow{
			Team:                   team,
			DailyTotal:             daily,
			DailyLimit:             dailyLimit,
			DailyPercent:           aggregate.QuotaPercent(daily, dailyLimit),
			MonthlyTotal:           metric.Monthly,
			MonthlyLimit:           monthlyLimit,
			MonthlyPercent:         aggregate.QuotaPercent(metric.Monthly, monthlyLimit),
			AvgResponseTimeSeconds: metric.AvgResponseTimeSeconds,
			MemberCount:            metric.MemberCount,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Team < rows[j].Team })
	return rows
}

func buildTeamMemberRows(users map[string]*aggregate.UserMetric, teams map[string]*aggregate.TeamMetric, membership map[string]string) []TeamMemberRow {
	rows := make([]TeamMemberRow, 0, len(users))
	for person, metric := range users {
		team := membership[person]
		share := 0
		if tm := teams[team]; tm != nil && tm.Monthly > 0 {
			share = aggregate.QuotaPercent(metric.Monthly, tm.Monthly)
		}
		rows = append(rows, TeamMemberRow{
			Person:         person,
			Team:           team,
			MonthlyQueries: metric.Monthly,
			TeamShare:      share,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Team != rows[j].Team {
			return rows[i].Team < rows[j].Team
		}
		return rows[i].Person < rows[j].Person
	})
	return rows
}

func buildDetailRows(users map[string]*aggregate.UserMetric, membership map[string]string) []DetailRow {
	rows := make([]DetailRow, 0, len(users))
	for person, metric := range users {
		row := DetailRow{Person: person, Team: membership[person]}
		copy(row.Daily[:], metric.Daily[1:])
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Person < rows[j].Person })
	return rows
}

func buildHistoryRows(records []backend.QueryLogRecord) []HistoryRow {
	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		row := HistoryRow{
			ID:            rec.ID,
			Timestamp:     rec.RequestTimestamp,
			Person:        rec.Person,
			Team:          rec.Team,
			Model:         rec.ModelID,
			KnowledgeBase: rec.KnowledgeBaseID,
			Query:         rec.QueryText,
			Status:        string(rec.Status),
			Tokens:        rec.TokensUsed,
			TrustScore:    rec.TrustScore,
			TrustCategory: rec.TrustCategory,
			StrategyType:  rec.StrategyType,
			ErrorMessage:  rec.ErrorMessage,
		}
		if rec.ProcessingTimeMs != nil {
			row.ResponseTimeSeconds = float64(*rec.ProcessingTimeMs) / 1000
		}
		rows = append(rows, row)
	}
	return rows
}
