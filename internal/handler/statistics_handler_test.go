package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/models"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

type fakeStatsSrv struct {
	stats        *dto.DashboardStatistics
	distribution dto.TypeDistribution
	points       []dto.TrendPoint
	cacheHit     bool
	err          error
	lastPeriod   models.TrendPeriod
	lastWindow   int
}

func (f *fakeStatsSrv) Dashboard(context.Context) (*dto.DashboardStatistics, bool, error) {
	return f.stats, f.cacheHit, f.err
}

func (f *fakeStatsSrv) TypeDistribution(context.Context) (dto.TypeDistribution, bool, error) {
	return f.distribution, f.cacheHit, f.err
}

func (f *fakeStatsSrv) Trends(_ context.Context, period models.TrendPeriod, windowSize int) ([]dto.TrendPoint, bool, error) {
	f.lastPeriod = period
	f.lastWindow = windowSize
	return f.points, f.cacheHit, f.err
}

func TestStatisticsHandlerDashboard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewStatisticsHandler(&fakeStatsSrv{
		stats:    &dto.DashboardStatistics{TotalStudents: 10, TotalWarnings: 4, ResolvedWarnings: 1, TotalCourses: 2},
		cacheHit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/dashboard", nil)

	h.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])

	var stats dto.DashboardStatistics
	require.NoError(t, json.Unmarshal(envelope.Data, &stats))
	assert.Equal(t, 10, stats.TotalStudents)
	assert.Equal(t, 1, stats.ResolvedWarnings)
}

func TestStatisticsHandlerTrendsDefaultPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStatsSrv{points: []dto.TrendPoint{{Label: "2024-05", Count: 2}}}
	h := NewStatisticsHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/warnings/trends", nil)

	h.Trends(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TrendPeriodMonth, srv.lastPeriod)
}

func TestStatisticsHandlerTrendsExplicitPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStatsSrv{points: []dto.TrendPoint{}}
	h := NewStatisticsHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/warnings/trends?period=week", nil)

	h.Trends(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TrendPeriodWeek, srv.lastPeriod)
}

func TestStatisticsHandlerTrendsWindowSize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStatsSrv{points: []dto.TrendPoint{}}
	h := NewStatisticsHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/warnings/trends?period=month&windowSize=12", nil)

	h.Trends(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, srv.lastWindow)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/warnings/trends?windowSize=0", nil)

	h.Trends(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsHandlerAggregationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewStatisticsHandler(&fakeStatsSrv{err: appErrors.ErrAggregation})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statistics/warnings/distribution", nil)

	h.Distribution(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "AGGREGATION_FAILED", envelope.Error["code"])
}
