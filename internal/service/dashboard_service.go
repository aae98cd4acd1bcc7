package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/dto"
	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type journalLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error)
}

type studentAssignmentViewer interface {
	StudentView(ctx context.Context, actor *models.JWTClaims) ([]models.DisplayableAssignment, error)
}

type dropoutRiskGenerator interface {
	GenerateDropoutRisk(ctx context.Context, institute string, attitude models.AttitudeStats, academic models.AssignmentStats) models.InsightResult[models.DropoutRiskAnalysis]
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentMoods int
	TrendDays   int
}

// DashboardService orchestrates composition of dashboard payloads.
type DashboardService struct {
	journals    journalLister
	assignments studentAssignmentViewer
	analytics   instituteStatsProvider
	insights    dropoutRiskGenerator
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Journals    journalLister
	Assignments studentAssignmentViewer
	Analytics   instituteStatsProvider
	Insights    dropoutRiskGenerator
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.RecentMoods <= 0 {
		cfg.RecentMoods = 5
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		journals:    params.Journals,
		assignments: params.Assignments,
		analytics:   params.Analytics,
		insights:    params.Insights,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Student returns the personal dashboard of a student. The boolean reports a cache hit.
func (s *DashboardService) Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "student dashboard is only available to students")
	}
	resp, hit, err := cacheAside(ctx, s.cache, studentDashboardKey(actor), s.cfg.CacheTTL, func(ctx context.Context) (dto.StudentDashboardResponse, error) {
		return s.composeStudent(ctx, actor)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build student dashboard")
	}
	return &resp, hit, nil
}

// studentDashboardKey ends with the institute name so InvalidateInstitute drops it too.
func studentDashboardKey(actor *models.JWTClaims) string {
	return CacheKey("dashboard", "student", actor.UserID, actor.InstituteName)
}

// Institute returns the staff dashboard of the actor's institute. Only successful dropout
// analyses are cached so a temporary model outage is retried on the next request.
func (s *DashboardService) Institute(ctx context.Context, actor *models.JWTClaims) (*dto.InstituteDashboardResponse, bool, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "institute dashboard is only available to staff")
	}
	institute := actor.InstituteName
	key := CacheKey("dashboard", "institute", institute)

	var cached dto.InstituteDashboardResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	attitude, _, err := s.analytics.Attitude(ctx, institute)
	if err != nil {
		return nil, false, err
	}
	assignments, _, err := s.analytics.Assignments(ctx, institute)
	if err != nil {
		return nil, false, err
	}
	risk := s.insights.GenerateDropoutRisk(ctx, institute, *attitude, *assignments)

	resp := &dto.InstituteDashboardResponse{
		InstituteName: institute,
		Attitude:      *attitude,
		Assignments:   *assignments,
		DropoutRisk:   &risk,
		GeneratedAt:   s.now().UTC(),
	}
	if risk.Success {
		_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	return resp, false, nil
}

func (s *DashboardService) composeStudent(ctx context.Context, actor *models.JWTClaims) (dto.StudentDashboardResponse, error) {
	entries, err := s.journals.ListByUser(ctx, actor.UserID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	items, err := s.assignments.StudentView(ctx, actor)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	now := s.now().UTC()
	resp := dto.StudentDashboardResponse{
		StudentID:        actor.UserID,
		JournalCount:     len(entries),
		RecentMoods:      RecentMoods(entries, s.cfg.RecentMoods),
		MoodTrend:        MoodTrend(entries, s.cfg.TrendDays),
		MoodDistribution: MoodDistribution(entries),
		Alerts:           BuildAssignmentAlerts(now, items),
	}
	for _, item := range items {
		if item.Status == models.AssignmentPending {
			resp.PendingCount++
		}
	}
	return resp, nil
}

// RecentMoods returns the newest limit entries, newest first.
func RecentMoods(entries []models.JournalEntry, limit int) []dto.RecentMood {
	sorted := sortedByDateDesc(entries)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]dto.RecentMood, 0, len(sorted))
	for _, entry := range sorted {
		out = append(out, dto.RecentMood{EntryID: entry.ID, Date: entry.Date, Mood: entry.Mood})
	}
	return out
}

// MoodTrend keeps the latest entry of each calendar day (UTC) and returns the most recent
// days in chronological order.
func MoodTrend(entries []models.JournalEntry, days int) []dto.MoodTrendPoint {
	latest := make(map[string]models.JournalEntry)
	for _, entry := range entries {
		day := entry.Date.UTC().Format("2006-01-02")
		if current, ok := latest[day]; !ok || entry.Date.After(current.Date) {
			latest[day] = entry
		}
	}
	daily := make([]models.JournalEntry, 0, len(latest))
	for _, entry := range latest {
		daily = append(daily, entry)
	}
	daily = sortedByDateDesc(daily)
	if len(daily) > days {
		daily = daily[:days]
	}

	points := make([]dto.MoodTrendPoint, len(daily))
	for i, entry := range daily {
		points[len(daily)-1-i] = dto.MoodTrendPoint{Date: entry.Date, MoodScore: entry.Mood.Score(), OriginalMood: entry.Mood}
	}
	return points
}

// MoodDistribution counts entries per mood in picker order, omitting unused moods.
func MoodDistribution(entries []models.JournalEntry) []dto.MoodDistributionBin {
	counts := make(map[models.Mood]int)
	for _, entry := range entries {
		counts[entry.Mood]++
	}
	bins := make([]dto.MoodDistributionBin, 0, len(counts))
	for _, mood := range models.MoodOptions {
		if counts[mood] > 0 {
			bins = append(bins, dto.MoodDistributionBin{Name: mood, Value: counts[mood]})
		}
	}
	return bins
}

func sortedByDateDesc(entries []models.JournalEntry) []models.JournalEntry {
	sorted := make([]models.JournalEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}
