package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/models"
	"github.com/noah-isme/academic-risk-api/internal/service"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
	"github.com/noah-isme/academic-risk-api/pkg/response"
)

type warningLifecycleService interface {
	Create(ctx context.Context, req service.CreateWarningRequest) (*dto.WarningResponse, error)
	Update(ctx context.Context, id string, req service.UpdateWarningRequest) (*dto.WarningResponse, error)
	Resolve(ctx context.Context, id string, req service.ResolveWarningRequest, actorID string) (*dto.WarningResponse, error)
	Delete(ctx context.Context, id string) error
}

type warningQueryService interface {
	List(ctx context.Context, query service.ListWarningsQuery) (*service.WarningPage, error)
	Get(ctx context.Context, id string) (*dto.WarningResponse, error)
	Recent(ctx context.Context, limit int) ([]dto.WarningResponse, error)
	ByStudent(ctx context.Context, studentID string, page, pageSize int) (*service.WarningPage, error)
	Types(ctx context.Context) ([]dto.WarningTypeResponse, error)
	Export(ctx context.Context, query service.ListWarningsQuery, format service.ExportFormat) (*service.ExportResult, error)
}

// WarningHandler wires the warning lifecycle and search services to HTTP
// endpoints.
type WarningHandler struct {
	lifecycle warningLifecycleService
	queries   warningQueryService
}

// NewWarningHandler constructs the handler.
func NewWarningHandler(lifecycle warningLifecycleService, queries warningQueryService) *WarningHandler {
	return &WarningHandler{lifecycle: lifecycle, queries: queries}
}

// List godoc
// @Summary Search warnings
// @Tags Warnings
// @Produce json
// @Param studentName query string false "Student name substring"
// @Param warningType query string false "Warning type code"
// @Param status query string false "Warning status"
// @Param page query int false "Page number (0-indexed)"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /warnings [get]
func (h *WarningHandler) List(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.queries.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination)
}

// Get godoc
// @Summary Fetch a single warning
// @Tags Warnings
// @Produce json
// @Param id path string true "Warning ID"
// @Success 200 {object} response.Envelope
// @Router /warnings/{id} [get]
func (h *WarningHandler) Get(c *gin.Context) {
	warning, err := h.queries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warning, nil)
}

// Recent godoc
// @Summary Latest warnings for the activity feed
// @Tags Warnings
// @Produce json
// @Param limit query int false "Maximum number of warnings (default 5)"
// @Success 200 {object} response.Envelope
// @Router /warnings/recent [get]
func (h *WarningHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}
	warnings, err := h.queries.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warnings, nil)
}

// ByStudent godoc
// @Summary Warnings of one student
// @Tags Warnings
// @Produce json
// @Param studentId path string true "Student ID"
// @Param page query int false "Page number (0-indexed)"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /warnings/student/{studentId} [get]
func (h *WarningHandler) ByStudent(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.queries.ByStudent(c.Request.Context(), c.Param("studentId"), query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination)
}

// Types godoc
// @Summary Warning types represented by active rules
// @Tags Warnings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /warnings/types [get]
func (h *WarningHandler) Types(c *gin.Context) {
	types, err := h.queries.Types(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Export godoc
// @Summary Export the filtered warning set
// @Tags Warnings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format: csv or pdf (default csv)"
// @Param studentName query string false "Student name substring"
// @Param warningType query string false "Warning type code"
// @Param status query string false "Warning status"
// @Success 200 {file} binary
// @Router /warnings/export [get]
func (h *WarningHandler) Export(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	if format == "" {
		format = service.ExportFormatCSV
	}
	result, err := h.queries.Export(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// Create godoc
// @Summary Create a warning
// @Tags Warnings
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /warnings [post]
func (h *WarningHandler) Create(c *gin.Context) {
	var req service.CreateWarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	warning, err := h.lifecycle.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, warning)
}

// Update godoc
// @Summary Update a warning's content and rule reference
// @Tags Warnings
// @Accept json
// @Produce json
// @Param id path string true "Warning ID"
// @Success 200 {object} response.Envelope
// @Router /warnings/{id} [put]
func (h *WarningHandler) Update(c *gin.Context) {
	var req service.UpdateWarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	warning, err := h.lifecycle.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warning, nil)
}

// Resolve godoc
// @Summary Resolve a warning
// @Tags Warnings
// @Accept json
// @Produce json
// @Param id path string true "Warning ID"
// @Success 200 {object} response.Envelope
// @Router /warnings/{id}/resolve [post]
func (h *WarningHandler) Resolve(c *gin.Context) {
	var req service.ResolveWarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	warning, err := h.lifecycle.Resolve(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warning, nil)
}

// Delete godoc
// @Summary Delete a warning
// @Tags Warnings
// @Param id path string true "Warning ID"
// @Success 204
// @Router /warnings/{id} [delete]
func (h *WarningHandler) Delete(c *gin.Context) {
	if err := h.lifecycle.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseListQuery(c *gin.Context) (service.ListWarningsQuery, error) {
	query := service.ListWarningsQuery{
		StudentName: strings.TrimSpace(c.Query("studentName")),
		WarningType: models.WarningType(strings.TrimSpace(c.Query("warningType"))),
		Status:      models.WarningStatus(strings.TrimSpace(c.Query("status"))),
		StudentID:   strings.TrimSpace(c.Query("studentId")),
	}
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "page must be a non-negative integer")
		}
		query.Page = page
	}
	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "pageSize must be a positive integer")
		}
		query.PageSize = size
	}
	return query, nil
}
