// Package dashboard orchestrates the section loaders behind the
// dashboard API: fetch the query-log working set, aggregate it into the
// per-tab views, and memoize backend payloads. Sections are independently
// fault-isolated; one section's backend failure never blocks a sibling.
package dashboard

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rag-monitor/dashboard/internal/aggregate"
	"github.com/rag-monitor/dashboard/internal/backend"
	"github.com/rag-monitor/dashboard/internal/cache"
	"github.com/rag-monitor/dashboard/internal/filter"
	"github.com/rag-monitor/dashboard/pkg/config"
	"github.com/rag-monitor/dashboard/pkg/utils"
)

type quotaLimits struct {
	daily   int
	monthly int
}

type Service struct {
	backend *backend.Client
	agg     *aggregate.Aggregator
	store   cache.Store
	cfg     *config.Config
}

func NewService(b *backend.Client, agg *aggregate.Aggregator, store cache.Store, cfg *config.Config) *Service {
	return &Service{backend: b, agg: agg, store: store, cfg: cfg}
}

// windowStart is the inclusive lower bound of the fetch window: midnight
// of today minus the configured window, which always covers the 11-day
// daily buckets and the 30-day monthly total.
func (s *Service) windowStart() time.Time {
	return s.agg.Today().AddDate(0, 0, -(s.cfg.Fetch.WindowDays - 1))
}

// workingSet resolves the shared flat log set, memoized under a key
// derived from the query shape. A fetch that produced zero pages means
// the very first page request failed; that is surfaced as an error (and
// not memoized) so sections can degrade instead of caching emptiness.
func (s *Service) workingSet(ctx context.Context) (*backend.FetchResult, error) {
	start := s.windowStart()
	key := utils.ShapeKey("query-logs",
		start.Format("2006-01-02"),
		strconv.Itoa(s.cfg.Fetch.PageSize),
		strconv.Itoa(s.cfg.Fetch.MaxPages),
	)

	var result backend.FetchResult
	err := cache.GetOrFetch(ctx, s.store, key, s.cfg.Cache.TTL(), &result, func(ctx context.Context) (interface{}, error) {
		res := s.backend.FetchAllLogs(ctx, start, time.Time{}, s.cfg.Fetch.PageSize, s.cfg.Fetch.MaxPages)
		if res.Pages == 0 {
			return nil, errors.New(res.Reason)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// OverviewView is the user-requests tab: headline rollups, today's
// hourly histogram, model distribution, the ten-day trend and the quota
// alerts.
type OverviewView struct {
	Connected              bool                           `json:"connected"`
	Truncated              bool                           `json:"truncated"`
	TotalQueriesToday      int                            `json:"totalQueriesToday"`
	ActiveUsersToday       int                            `json:"activeUsersToday"`
	AvgQueriesPerUser      int                            `json:"avgQueriesPerUser"`
	AvgResponseTimeSeconds float64                        `json:"avgResponseTimeSeconds"`
	Hourly                 [24]int                        `json:"hourly"`
	ModelUsage             map[string]int                 `json:"modelUsage"`
	DailyTrend             [aggregate.DailyWindow - 1]int `json:"dailyTrend"`
	UserCount              int                            `json:"userCount"`
	TeamCount              int                            `json:"teamCount"`
	Alerts                 []aggregate.Alert              `json:"alerts"`
}

func (s *Service) Overview(ctx context.Context) (*OverviewView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}

	users := s.agg.ByUser(ws.Records)
	teams := s.agg.ByTeam(ws.Records)
	rollup := s.agg.OverviewOf(users)

	view := &OverviewView{
		Connected:              true,
		Truncated:              ws.Truncated,
		TotalQueriesToday:      rollup.TotalQueriesToday,
		ActiveUsersToday:       rollup.ActiveUsersToday,
		AvgQueriesPerUser:      rollup.AvgQueriesPerUser,
		AvgResponseTimeSeconds: rollup.AvgResponseTimeSeconds,
		Hourly:                 s.agg.HourlyHistogram(ws.Records),
		ModelUsage:             s.agg.ModelUsageToday(ws.Records),
		DailyTrend:             aggregate.DailyTotals(users),
		UserCount:              len(users),
		TeamCount:              len(teams),
	}

	uq := s.cfg.Quota.User
	view.Alerts = append(view.Alerts,
		aggregate.UserAlerts(users, uq.DailyLimit, uq.WarningThreshold, uq.CriticalThreshold)...)
	tq := s.cfg.Quota.Team
	view.Alerts = append(view.Alerts,
		aggregate.TeamAlerts(teams, tq.MonthlyLimit, tq.WarningThreshold, tq.CriticalThreshold)...)

	return view, nil
}

type UserTableView struct {
	Rows      []UserRow `json:"rows"`
	Page      PageInfo  `json:"pagination"`
	Truncated bool      `json:"truncated"`
}

func (s *Service) Users(ctx context.Context, page, pageSize int) (*UserTableView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Tables.UserPageSize
	}

	users := s.agg.ByUser(ws.Records)
	membership := s.agg.Membership(ws.Records)
	rows := buildUserRows(users, membership, quotaLimits{
		daily:   s.cfg.Quota.User.DailyLimit,
		monthly: s.cfg.Quota.User.MonthlyLimit,
	})

	st := pageState(len(rows), pageSize, page)
	w := st.Window()
	return &UserTableView{
		Rows:      rows[w.Start:w.End],
		Page:      pageInfoOf(st),
		Truncated: ws.Truncated,
	}, nil
}

type TeamTableView struct {
	Rows      []TeamRow `json:"rows"`
	Truncated bool      `json:"truncated"`
}

func (s *Service) Teams(ctx context.Context) (*TeamTableView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}

	teams := s.agg.ByTeam(ws.Records)
	return &TeamTableView{
		Rows:      buildTeamRows(teams, s.cfg.Quota.Team.MonthlyLimit),
		Truncated: ws.Truncated,
	}, nil
}

type TeamMemberTableView struct {
	Rows      []TeamMemberRow `json:"rows"`
	Page      PageInfo        `json:"pagination"`
	Truncated bool            `json:"truncated"`
}

func (s *Service) TeamMembers(ctx context.Context, page, pageSize int) (*TeamMemberTableView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Tables.TeamUserPageSize
	}

	users := s.agg.ByUser(ws.Records)
	teams := s.agg.ByTeam(ws.Records)
	membership := s.agg.Membership(ws.Records)
	rows := buildTeamMemberRows(users, teams, membership)

	st := pageState(len(rows), pageSize, page)
	w := st.Window()
	return &TeamMemberTableView{
		Rows:      rows[w.Start:w.End],
		Page:      pageInfoOf(st),
		Truncated: ws.Truncated,
	}, nil
}

// DetailsView is the requests-details tab: the per-user daily matrix and
// the ten-day trend series.
type DetailsView struct {
	Rows          []DetailRow                        `json:"rows"`
	Page          PageInfo                           `json:"pagination"`
	DailyTrend    [aggregate.DailyWindow - 1]int     `json:"dailyTrend"`
	ResponseTrend [aggregate.DailyWindow - 1]float64 `json:"responseTrend"`
	ModelTrend    map[string][]int                   `json:"modelTrend"`
	Truncated     bool                               `json:"truncated"`
}

func (s *Service) Details(ctx context.Context, page, pageSize int) (*DetailsView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Tables.DetailPageSize
	}

	users := s.agg.ByUser(ws.Records)
	membership := s.agg.Membership(ws.Records)
	rows := buildDetailRows(users, membership)

	st := pageState(len(rows), pageSize, page)
	w := st.Window()
	return &DetailsView{
		Rows:          rows[w.Start:w.End],
		Page:          pageInfoOf(st),
		DailyTrend:    aggregate.DailyTotals(users),
		ResponseTrend: s.responseTrend(ws.Records),
		ModelTrend:    s.modelTrend(ws.Records, 3),
		Truncated:     ws.Truncated,
	}, nil
}

// ModelMatrixView is the model×team usage table, teams as columns plus a
// totals row and column.
type ModelMatrixView struct {
	Teams      []string         `json:"teams"`
	Rows       []ModelMatrixRow `json:"rows"`
	TeamTotals []int            `json:"teamTotals"`
	GrandTotal int              `json:"grandTotal"`
	Truncated  bool             `json:"truncated"`
}

func (s *Service) Models(ctx context.Context) (*ModelMatrixView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}

	byModel := s.agg.ByModelTeam(ws.Records)

	teamSet := make(map[string]struct{})
	for _, teams := range byModel {
		for team := range teams {
			teamSet[team] = struct{}{}
		}
	}
	teams := make([]string, 0, len(teamSet))
	for team := range teamSet {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	models := make([]string, 0, len(byModel))
	for model := range byModel {
		models = append(models, model)
	}
	sort.Strings(models)

	view := &ModelMatrixView{
		Teams:      teams,
		TeamTotals: make([]int, len(teams)),
		Truncated:  ws.Truncated,
	}
	for _, model := range models {
		row := ModelMatrixRow{Model: model, Counts: make([]int, len(teams))}
		for i, team := range teams {
			count := byModel[model][team]
			row.Counts[i] = count
			row.Total += count
			view.TeamTotals[i] += count
			view.GrandTotal += count
		}
		view.Rows = append(view.Rows, row)
	}
	return view, nil
}

type HistoryView struct {
	Rows      []HistoryRow `json:"rows"`
	Page      PageInfo     `json:"pagination"`
	Truncated bool         `json:"truncated"`
}

// History applies the filter criteria over the working set, newest
// first, and pages the result. Every call re-derives the filtered set,
// so a criteria change inherently lands on page 1 unless the caller asks
// for a later page of the same criteria.
func (s *Service) History(ctx context.Context, criteria filter.Criteria, page, pageSize int) (*HistoryView, error) {
	ws, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Tables.HistoryPageSize
	}

	records := make([]backend.QueryLogRecord, len(ws.Records))
	copy(records, ws.Records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RequestTimestamp.After(records[j].RequestTimestamp)
	})

	filtered := filter.Apply(criteria, records)

	st := pageState(len(filtered), pageSize, page)
	w := st.Window()
	return &HistoryView{
		Rows:      buildHistoryRows(filtered[w.Start:w.End]),
		Page:      pageInfoOf(st),
		Truncated: ws.Truncated,
	}, nil
}

// HistoryDetail proxies the single-record endpoint. Never cached: the
// detail modal should always reflect the backend's current row.
func (s *Service) HistoryDetail(ctx context.Context, id string) (*backend.QueryLogDetail, error) {
	return s.backend.QueryLogDetail(ctx, id)
}

// Trust proxies the pre-aggregated trust metrics, memoized per window.
func (s *Service) Trust(ctx context.Context, days int) (*backend.TrustAnalytics, error) {
	if days <= 0 {
		days = s.cfg.Trust.DefaultDays
	}
	key := utils.ShapeKey("trust-analytics", strconv.Itoa(days))

	var trust backend.TrustAnalytics
	err := cache.GetOrFetch(ctx, s.store, key, s.cfg.Cache.TTL(), &trust, func(ctx context.Context) (interface{}, error) {
		return s.backend.TrustAnalytics(ctx, days)
	})
	if err != nil {
		return nil, err
	}
	return &trust, nil
}

// Options returns the dropdown option lists, memoized. When the filters
// endpoint fails the lists are derived from the working set instead, so
// the history tab stays usable.
func (s *Service) Options(ctx context.Context) (*backend.FilterOptions, error) {
	key := utils.ShapeKey("filters")

	var options backend.FilterOptions
	err := cache.GetOrFetch(ctx, s.store, key, s.cfg.Cache.TTL(), &options, func(ctx context.Context) (interface{}, error) {
		opts, err := s.backend.Filters(ctx)
		if err == nil {
			return opts, nil
		}
		ws, wsErr := s.workingSet(ctx)
		if wsErr != nil {
			return nil, err
		}
		return deriveOptions(ws.Records), nil
	})
	if err != nil {
		return nil, err
	}
	return &options, nil
}

// Refresh drops every memoized payload wholesale. The next section load
// re-fetches from the backend.
func (s *Service) Refresh(ctx context.Context) error {
	return s.store.Invalidate(ctx, "")
}

func deriveOptions(records []backend.QueryLogRecord) *backend.FilterOptions {
	persons := make(map[string]struct{})
	teams := make(map[string]struct{})
	models := make(map[string]struct{})
	kbs := make(map[string]struct{})

	for _, rec := range records {
		if rec.Person != "" {
			persons[rec.Person] = struct{}{}
		}
		if rec.Team != "" {
			teams[rec.Team] = struct{}{}
		}
		if rec.ModelID != "" {
			models[rec.ModelID] = struct{}{}
		}
		if rec.KnowledgeBaseID != "" {
			kbs[rec.KnowledgeBaseID] = struct{}{}
		}
	}

	return &backend.FilterOptions{
		Persons:        sortedKeys(persons),
		Teams:          sortedKeys(teams),
		Models:         sortedKeys(models),
		KnowledgeBases: sortedKeys(kbs),
		Statuses:       []string{string(backend.StatusCompleted), string(backend.StatusError)},
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// responseTrend averages processing time per day over the last ten days,
// in seconds. Rows without a recorded time are skipped, matching the
// per-user averaging rule.
func (s *Service) responseTrend(records []backend.QueryLogRecord) [aggregate.DailyWindow - 1]float64 {
	var sums [aggregate.DailyWindow - 1]int
	var counts [aggregate.DailyWindow - 1]int
	var trend [aggregate.DailyWindow - 1]float64

	today := s.agg.Today()
	for _, rec := range records {
		if rec.ProcessingTimeMs == nil {
			continue
		}
		idx := dayIndex(today, rec.RequestTimestamp, s.agg)
		if idx < 1 {
			continue
		}
		sums[idx-1] += *rec.ProcessingTimeMs
		counts[idx-1]++
	}
	for i := range trend {
		if counts[i] > 0 {
			trend[i] = float64(sums[i]) / float64(counts[i]) / 1000
		}
	}
	return trend
}

// modelTrend builds per-day counts for the top N models by total volume.
func (s *Service) modelTrend(records []backend.QueryLogRecord, topN int) map[string][]int {
	totals := make(map[string]int)
	perDay := make(map[string][]int)

	today := s.agg.Today()
	for _, rec := range records {
		if rec.ModelID == "" {
			continue
		}
		idx := dayIndex(today, rec.RequestTimestamp, s.agg)
		if idx < 1 {
			continue
		}
		totals[rec.ModelID]++
		if perDay[rec.ModelID] == nil {
			perDay[rec.ModelID] = make([]int, aggregate.DailyWindow-1)
		}
		perDay[rec.ModelID][idx-1]++
	}

	models := make([]string, 0, len(totals))
	for model := range totals {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool {
		if totals[models[i]] != totals[models[j]] {
			return totals[models[i]] > totals[models[j]]
		}
		return models[i] < models[j]
	})
	if len(models) > topN {
		models = models[:topN]
	}

	out := make(map[string][]int, len(models))
	for _, model := range models {
		out[model] = perDay[model]
	}
	return out
}

// dayIndex maps a timestamp to its slot in the 11-day window: 10 is
// today, 0 is ten days ago, -1 is outside the window.
func dayIndex(today time.Time, ts time.Time, agg *aggregate.Aggregator) int {
	day := agg.DayStart(ts)
	// Rounded so a DST-shortened or lengthened day still maps cleanly.
	offset := int(math.Round(today.Sub(day).Hours() / 24))
	if offset < 0 || offset > aggregate.DailyWindow-1 {
		return -1
	}
	return aggregate.DailyWindow - 1 - offset
}
