package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/models"
	"github.com/noah-isme/academic-risk-api/pkg/export"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

type warningSearchRepository interface {
	List(ctx context.Context, filter models.WarningFilter) ([]models.WarningDetail, int, error)
	FindDetail(ctx context.Context, id string) (*models.WarningDetail, error)
	Recent(ctx context.Context, limit int) ([]models.WarningDetail, error)
}

type ruleTypeResolver interface {
	IDsByType(ctx context.Context, warningType models.WarningType) ([]string, error)
	ActiveTypes(ctx context.Context) ([]models.WarningType, error)
}

// ListWarningsQuery carries the filter and pagination inputs of a warning
// search. Page is 0-indexed.
type ListWarningsQuery struct {
	StudentName string
	WarningType models.WarningType
	Status      models.WarningStatus
	StudentID   string
	Page        int
	PageSize    int
}

// WarningPage is one page of warnings plus the total size of the filtered
// set.
type WarningPage struct {
	Items      []dto.WarningResponse `json:"items"`
	Pagination models.Pagination     `json:"pagination"`
}

var warningTypeNames = map[models.WarningType]string{
	models.WarningTypeCourseGrade:     "Course Grade Warning",
	models.WarningTypeMultipleFail:    "Multiple Course Failure Warning",
	models.WarningTypeSemesterAverage: "Semester Average Warning",
	models.WarningTypeSevere:          "Severe Academic Warning",
}

// WarningTypeName returns the display name for a type code, falling back to
// the raw code for types outside the fixed catalog.
func WarningTypeName(t models.WarningType) string {
	if name, ok := warningTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// WarningQueryService serves the read side of the warning surface: search,
// detail, recent activity, the per-student view, the type catalog and
// tabular exports.
type WarningQueryService struct {
	warnings  warningSearchRepository
	rules     ruleTypeResolver
	students  studentReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	maxExport int
	logger    *zap.Logger
}

// NewWarningQueryService constructs the read-side service.
func NewWarningQueryService(warnings warningSearchRepository, rules ruleTypeResolver, students studentReader, maxExport int, logger *zap.Logger) *WarningQueryService {
	if maxExport <= 0 {
		maxExport = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarningQueryService{
		warnings:  warnings,
		rules:     rules,
		students:  students,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		maxExport: maxExport,
		logger:    logger,
	}
}

// List runs a filtered, paginated warning search. A type filter that matches
// no rules yields an empty page without touching the warning table.
func (s *WarningQueryService) List(ctx context.Context, query ListWarningsQuery) (*WarningPage, error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown warning status %q", query.Status))
	}

	filter := models.WarningFilter{
		StudentName: query.StudentName,
		Status:      query.Status,
		StudentID:   query.StudentID,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}

	if query.WarningType != "" {
		ids, err := s.rules.IDsByType(ctx, query.WarningType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve warning type")
		}
		if len(ids) == 0 {
			return &WarningPage{
				Items:      []dto.WarningResponse{},
				Pagination: models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: 0},
			}, nil
		}
		filter.RuleIDs = ids
	}

	details, total, err := s.warnings.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list warnings")
	}
	return &WarningPage{
		Items:      dto.NewWarningResponses(details),
		Pagination: models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total},
	}, nil
}

// Get fetches one warning by ID.
func (s *WarningQueryService) Get(ctx context.Context, id string) (*dto.WarningResponse, error) {
	detail, err := s.warnings.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "warning not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load warning")
	}
	response := dto.NewWarningResponse(*detail)
	return &response, nil
}

// Recent returns the newest warnings, for the activity feed.
func (s *WarningQueryService) Recent(ctx context.Context, limit int) ([]dto.WarningResponse, error) {
	details, err := s.warnings.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent warnings")
	}
	return dto.NewWarningResponses(details), nil
}

// ByStudent returns one page of a student's warnings, newest first. The
// student must exist; a student without warnings yields an empty page.
func (s *WarningQueryService) ByStudent(ctx context.Context, studentID string, page, pageSize int) (*WarningPage, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	details, total, err := s.warnings.List(ctx, models.WarningFilter{StudentID: studentID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student warnings")
	}
	return &WarningPage{
		Items:      dto.NewWarningResponses(details),
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// Types lists the types currently represented by active rules, each with its
// display name.
func (s *WarningQueryService) Types(ctx context.Context) ([]dto.WarningTypeResponse, error) {
	types, err := s.rules.ActiveTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list warning types")
	}
	responses := make([]dto.WarningTypeResponse, 0, len(types))
	for _, t := range types {
		responses = append(responses, dto.WarningTypeResponse{Code: t, Name: WarningTypeName(t)})
	}
	return responses, nil
}

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered export document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the filtered warning set as CSV or PDF, capped at the
// configured row limit.
func (s *WarningQueryService) Export(ctx context.Context, query ListWarningsQuery, format ExportFormat) (*ExportResult, error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown warning status %q", query.Status))
	}

	filter := models.WarningFilter{
		StudentName: query.StudentName,
		Status:      query.Status,
		StudentID:   query.StudentID,
		PageSize:    s.maxExport,
	}

	var details []models.WarningDetail
	skipQuery := false
	if query.WarningType != "" {
		ids, err := s.rules.IDsByType(ctx, query.WarningType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve warning type")
		}
		if len(ids) == 0 {
			skipQuery = true
		}
		filter.RuleIDs = ids
	}

	if !skipQuery {
		var err error
		details, _, err = s.warnings.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export warnings")
		}
	}

	table := export.Table{
		Title:   "Academic Warnings",
		Headers: []string{"Student", "Student No.", "Title", "Type", "Level", "Status", "Created At", "Resolved At"},
		Rows:    make([][]string, 0, len(details)),
	}
	for _, d := range details {
		resolvedAt := ""
		if d.ResolvedAt != nil {
			resolvedAt = d.ResolvedAt.Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			d.StudentName,
			d.StudentNumber,
			d.RuleName,
			WarningTypeName(d.RuleType),
			strconv.Itoa(d.RuleLevel),
			string(d.Status),
			d.CreatedAt.Format(time.RFC3339),
			resolvedAt,
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "warnings-" + stamp + ".csv"}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "warnings-" + stamp + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
