package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/models"
	"github.com/noah-isme/academic-risk-api/internal/repository"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

type warningLifecycleRepository interface {
	FindDetail(ctx context.Context, id string) (*models.WarningDetail, error)
	Create(ctx context.Context, record *models.WarningRecord) error
	Update(ctx context.Context, id, content, ruleID string) error
	Resolve(ctx context.Context, id, notes, resolvedBy string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type ruleCatalogReader interface {
	FindByID(ctx context.Context, id string) (*models.WarningRule, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateWarningRequest describes the create payload.
type CreateWarningRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	RuleID    string `json:"rule_id" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// UpdateWarningRequest describes the update payload. RuleID is optional;
// when present the rule reference is re-resolved and replaced.
type UpdateWarningRequest struct {
	Content string `json:"content" validate:"required"`
	RuleID  string `json:"rule_id"`
}

// ResolveWarningRequest describes the resolve payload.
type ResolveWarningRequest struct {
	Solution string `json:"solution" validate:"required"`
}

// WarningService drives the warning lifecycle: create, update, resolve and
// delete. Every mutation that can change a student's set of open warnings
// re-establishes the risk flag before the operation completes.
type WarningService struct {
	warnings  warningLifecycleRepository
	rules     ruleCatalogReader
	students  studentReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewWarningService constructs the lifecycle service.
func NewWarningService(warnings warningLifecycleRepository, rules ruleCatalogReader, students studentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *WarningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarningService{
		warnings:  warnings,
		rules:     rules,
		students:  students,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create registers a new warning in state NEW and raises the student's risk
// flag. Both referenced entities must exist.
func (s *WarningService) Create(ctx context.Context, req CreateWarningRequest) (*dto.WarningResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid warning payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.rules.FindByID(ctx, req.RuleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "warning rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load warning rule")
	}

	record := &models.WarningRecord{
		StudentID: req.StudentID,
		RuleID:    req.RuleID,
		Content:   req.Content,
		Status:    models.WarningStatusNew,
		CreatedAt: s.now().UTC(),
	}
	if err := s.warnings.Create(ctx, record); err != nil {
		return nil, s.mutationError(err, "failed to create warning")
	}
	s.invalidateStatistics(ctx)
	return s.loadResponse(ctx, record.ID)
}

// Update replaces the warning content and optionally its rule. Status and
// resolution metadata are untouched, as is the risk flag. A rule change moves
// the warning between types, so it drops the cached statistics.
func (s *WarningService) Update(ctx context.Context, id string, req UpdateWarningRequest) (*dto.WarningResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid warning payload")
	}
	if req.RuleID != "" {
		if _, err := s.rules.FindByID(ctx, req.RuleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "warning rule not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load warning rule")
		}
	}
	if err := s.warnings.Update(ctx, id, req.Content, req.RuleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "warning not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update warning")
	}
	if req.RuleID != "" {
		s.invalidateStatistics(ctx)
	}
	return s.loadResponse(ctx, id)
}

// Resolve moves a warning to its terminal RESOLVED state, recording the
// solution and the acting user supplied by the boundary layer, then
// re-evaluates the owning student's risk flag.
func (s *WarningService) Resolve(ctx context.Context, id string, req ResolveWarningRequest, actorID string) (*dto.WarningResponse, error) {
	if err := s.validator.Struct(req); err != nil || strings.TrimSpace(req.Solution) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "solution is required")
	}
	if err := s.warnings.Resolve(ctx, id, req.Solution, actorID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "warning not found")
		}
		return nil, s.mutationError(err, "failed to resolve warning")
	}
	s.invalidateStatistics(ctx)
	return s.loadResponse(ctx, id)
}

// Delete removes a warning and re-evaluates the owning student's risk flag.
func (s *WarningService) Delete(ctx context.Context, id string) error {
	if err := s.warnings.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "warning not found")
		}
		return s.mutationError(err, "failed to delete warning")
	}
	s.invalidateStatistics(ctx)
	return nil
}

func (s *WarningService) loadResponse(ctx context.Context, id string) (*dto.WarningResponse, error) {
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

// mutationError maps flag-sync failures onto the consistency error so a
// stale risk flag is never reported as a generic internal failure.
func (s *WarningService) mutationError(err error, message string) error {
	if errors.Is(err, repository.ErrFlagSync) {
		s.logger.Error("risk flag re-evaluation failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status, appErrors.ErrConsistency.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *WarningService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.Error(err))
	}
}
