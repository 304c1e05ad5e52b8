package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/middleware"
	"github.com/noah-isme/academic-risk-api/internal/models"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
	"github.com/noah-isme/academic-risk-api/pkg/response"
)

type statisticsService interface {
	Dashboard(ctx context.Context) (*dto.DashboardStatistics, bool, error)
	TypeDistribution(ctx context.Context) (dto.TypeDistribution, bool, error)
	Trends(ctx context.Context, period models.TrendPeriod, windowSize int) ([]dto.TrendPoint, bool, error)
}

// StatisticsHandler wires the aggregation service to HTTP endpoints.
type StatisticsHandler struct {
	service statisticsService
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service statisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// Dashboard godoc
// @Summary Headline dashboard totals
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/dashboard [get]
func (h *StatisticsHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reply(c, start, cacheHit, stats)
}

// Distribution godoc
// @Summary Warning counts per type
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/warnings/distribution [get]
func (h *StatisticsHandler) Distribution(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	distribution, cacheHit, err := h.service.TypeDistribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reply(c, start, cacheHit, distribution)
}

// Trends godoc
// @Summary Warning trend buckets, oldest first
// @Tags Statistics
// @Produce json
// @Param period query string false "Bucketing period: day, week or month (default month)"
// @Param windowSize query int false "Number of month buckets (month period only)"
// @Success 200 {object} response.Envelope
// @Router /statistics/warnings/trends [get]
func (h *StatisticsHandler) Trends(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	period := models.TrendPeriod(strings.ToLower(strings.TrimSpace(c.Query("period"))))
	if period == "" {
		period = models.TrendPeriodMonth
	}
	windowSize := 0
	if raw := strings.TrimSpace(c.Query("windowSize")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "windowSize must be a positive integer"))
			return
		}
		windowSize = parsed
	}
	start := time.Now()
	points, cacheHit, err := h.service.Trends(c.Request.Context(), period, windowSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reply(c, start, cacheHit, points)
}

func (h *StatisticsHandler) reply(c *gin.Context, start time.Time, cacheHit bool, data interface{}) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
