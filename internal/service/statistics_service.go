package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/models"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

const (
	cacheKeyDashboard    = "stats:dashboard"
	cacheKeyDistribution = "stats:distribution"
	cacheKeyTrendPrefix  = "stats:trends:"

	trendDayBuckets  = 30
	trendWeekBuckets = 12
)

type warningStatsRepository interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.WarningStatus) (int, error)
	TypeCounts(ctx context.Context) ([]models.TypeCount, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.WarningTimelineEntry, error)
}

type studentCounter interface {
	Count(ctx context.Context) (int, error)
}

type courseCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatisticsService computes dashboard totals, the per-type distribution and
// warning trends. Results are cached when a cache service is wired; cache
// failures degrade to recomputation, never to request failure.
type StatisticsService struct {
	warnings    warningStatsRepository
	students    studentCounter
	courses     courseCounter
	cache       *CacheService
	cacheTTL    time.Duration
	trendMonths int
	logger      *zap.Logger
	now         func() time.Time
}

// NewStatisticsService constructs the aggregation service.
func NewStatisticsService(warnings warningStatsRepository, students studentCounter, courses courseCounter, cache *CacheService, cacheTTL time.Duration, trendMonths int, logger *zap.Logger) *StatisticsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if trendMonths <= 0 {
		trendMonths = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		warnings:    warnings,
		students:    students,
		courses:     courses,
		cache:       cache,
		cacheTTL:    cacheTTL,
		trendMonths: trendMonths,
		logger:      logger,
		now:         time.Now,
	}
}

// Dashboard returns the headline totals. The cached flag reports whether the
// payload came from cache.
func (s *StatisticsService) Dashboard(ctx context.Context) (*dto.DashboardStatistics, bool, error) {
	var cached dto.DashboardStatistics
	if hit, _ := s.cache.Get(ctx, cacheKeyDashboard, &cached); hit {
		return &cached, true, nil
	}

	stats := &dto.DashboardStatistics{}
	var err error
	if stats.TotalStudents, err = s.students.Count(ctx); err != nil {
		return nil, false, s.aggregationError(err, "count students")
	}
	if stats.TotalWarnings, err = s.warnings.Count(ctx); err != nil {
		return nil, false, s.aggregationError(err, "count warnings")
	}
	if stats.ResolvedWarnings, err = s.warnings.CountByStatus(ctx, models.WarningStatusResolved); err != nil {
		return nil, false, s.aggregationError(err, "count resolved warnings")
	}
	if stats.TotalCourses, err = s.courses.Count(ctx); err != nil {
		return nil, false, s.aggregationError(err, "count courses")
	}

	s.store(ctx, cacheKeyDashboard, stats)
	return stats, false, nil
}

// TypeDistribution returns warning counts per rule type. The four known types
// are always present; types outside the catalog are passed through.
func (s *StatisticsService) TypeDistribution(ctx context.Context) (dto.TypeDistribution, bool, error) {
	var cached dto.TypeDistribution
	if hit, _ := s.cache.Get(ctx, cacheKeyDistribution, &cached); hit {
		return cached, true, nil
	}

	counts, err := s.warnings.TypeCounts(ctx)
	if err != nil {
		return nil, false, s.aggregationError(err, "warning type counts")
	}

	distribution := make(dto.TypeDistribution, len(models.KnownWarningTypes))
	for _, t := range models.KnownWarningTypes {
		distribution[t] = 0
	}
	for _, c := range counts {
		distribution[c.Type] = c.Count
	}

	s.store(ctx, cacheKeyDistribution, distribution)
	return distribution, false, nil
}

// Trends buckets warnings created within the period's window, oldest bucket
// first. Day yields 30 daily buckets and week 12 rolling 7-day buckets; any
// other period buckets by calendar month, windowSize overriding the
// configured month window.
func (s *StatisticsService) Trends(ctx context.Context, period models.TrendPeriod, windowSize int) ([]dto.TrendPoint, bool, error) {
	switch period {
	case models.TrendPeriodDay, models.TrendPeriodWeek:
	default:
		period = models.TrendPeriodMonth
	}

	months := s.trendMonths
	if windowSize > 0 {
		months = windowSize
	}

	cacheKey := cacheKeyTrendPrefix + string(period)
	if period == models.TrendPeriodMonth {
		cacheKey = fmt.Sprintf("%s%s:%d", cacheKeyTrendPrefix, period, months)
	}
	var cached []dto.TrendPoint
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, true, nil
	}

	var points []dto.TrendPoint
	var err error
	switch period {
	case models.TrendPeriodDay:
		points, err = s.dailyTrends(ctx)
	case models.TrendPeriodWeek:
		points, err = s.weeklyTrends(ctx)
	default:
		points, err = s.monthlyTrends(ctx, months)
	}
	if err != nil {
		return nil, false, err
	}

	s.store(ctx, cacheKey, points)
	return points, false, nil
}

// dailyTrends: one bucket per calendar day, today included.
func (s *StatisticsService) dailyTrends(ctx context.Context) ([]dto.TrendPoint, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -trendDayBuckets)

	entries, err := s.warnings.ListCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, s.aggregationError(err, "daily trend window")
	}

	points := make([]dto.TrendPoint, 0, trendDayBuckets)
	for i := 0; i < trendDayBuckets; i++ {
		day := today.AddDate(0, 0, -i)
		point := dto.TrendPoint{Label: day.Format("2006-01-02")}
		for _, e := range entries {
			if e.CreatedAt.UTC().Format("2006-01-02") != point.Label {
				continue
			}
			point.Count++
			if e.Status == models.WarningStatusResolved {
				point.ResolvedCount++
			}
		}
		points = append(points, point)
	}
	reverse(points)
	return points, nil
}

// weeklyTrends: rolling 7-day buckets anchored at the current instant. The
// bucket label carries the current month and the bucket's backward index,
// newest bucket being 1.
func (s *StatisticsService) weeklyTrends(ctx context.Context) ([]dto.TrendPoint, error) {
	end := s.now().UTC()
	start := end.AddDate(0, 0, -7*trendWeekBuckets)

	entries, err := s.warnings.ListCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, s.aggregationError(err, "weekly trend window")
	}

	points := make([]dto.TrendPoint, 0, trendWeekBuckets)
	for i := 0; i < trendWeekBuckets; i++ {
		bucketStart := end.AddDate(0, 0, -7*(i+1))
		bucketEnd := end.AddDate(0, 0, -7*i)
		point := dto.TrendPoint{Label: fmt.Sprintf("W%d-%d", int(end.Month()), i+1)}
		for _, e := range entries {
			created := e.CreatedAt.UTC()
			if created.Before(bucketStart) || !created.Before(bucketEnd) {
				continue
			}
			point.Count++
			if e.Status == models.WarningStatusResolved {
				point.ResolvedCount++
			}
		}
		points = append(points, point)
	}
	reverse(points)
	return points, nil
}

// monthlyTrends: one bucket per calendar month, the current month included.
func (s *StatisticsService) monthlyTrends(ctx context.Context, months int) ([]dto.TrendPoint, error) {
	now := s.now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := currentMonth.AddDate(0, 1, 0)
	start := currentMonth.AddDate(0, -(months - 1), 0)

	entries, err := s.warnings.ListCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, s.aggregationError(err, "monthly trend window")
	}

	points := make([]dto.TrendPoint, 0, months)
	for i := 0; i < months; i++ {
		month := currentMonth.AddDate(0, -i, 0)
		point := dto.TrendPoint{Label: month.Format("2006-01")}
		for _, e := range entries {
			if e.CreatedAt.UTC().Format("2006-01") != point.Label {
				continue
			}
			point.Count++
			if e.Status == models.WarningStatusResolved {
				point.ResolvedCount++
			}
		}
		points = append(points, point)
	}
	reverse(points)
	return points, nil
}

func (s *StatisticsService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("statistics cache store failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *StatisticsService) aggregationError(err error, step string) error {
	s.logger.Error("statistics aggregation failed", zap.String("step", step), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, appErrors.ErrAggregation.Message)
}

func reverse(points []dto.TrendPoint) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}
