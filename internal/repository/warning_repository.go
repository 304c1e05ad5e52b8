package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-risk-api/internal/models"
)

// ErrFlagSync marks failures while re-establishing a student's risk flag.
// Callers surface these loudly instead of swallowing them.
var ErrFlagSync = errors.New("risk flag sync failed")

const warningDetailColumns = `w.id, w.student_id, w.rule_id, w.content, w.status, w.created_at, w.resolved_at, w.resolution_notes, w.resolved_by,
        s.full_name AS student_name, s.student_number AS student_number,
        r.name AS rule_name, r.type AS rule_type, r.level AS rule_level, r.color AS rule_color,
        u.full_name AS resolved_by_name`

const warningDetailJoins = `FROM warning_records w
        JOIN students s ON s.id = w.student_id
        JOIN warning_rules r ON r.id = w.rule_id
        LEFT JOIN users u ON u.id = w.resolved_by`

// WarningRepository manages persistence for warning records and keeps the
// student risk flag consistent with the set of open warnings.
type WarningRepository struct {
	db *sqlx.DB
}

// NewWarningRepository constructs a WarningRepository.
func NewWarningRepository(db *sqlx.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// List returns warnings matching the filter, newest first, plus the total
// count of the unpaginated filtered set. All predicates are evaluated in the
// query so pagination counts stay accurate.
func (r *WarningRepository) List(ctx context.Context, filter models.WarningFilter) ([]models.WarningDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentName != "" {
		conditions = append(conditions, fmt.Sprintf("s.full_name LIKE $%d", len(args)+1))
		args = append(args, "%"+filter.StudentName+"%")
	}
	if len(filter.RuleIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("w.rule_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.RuleIDs))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("w.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("w.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	whereClause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 0 {
		page = 0
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 10
	}
	offset := page * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY w.created_at DESC LIMIT %d OFFSET %d",
		warningDetailColumns, warningDetailJoins, whereClause, size, offset)

	var warnings []models.WarningDetail
	if err := r.db.SelectContext(ctx, &warnings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list warnings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", warningDetailJoins, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count warnings: %w", err)
	}
	return warnings, total, nil
}

// FindDetail fetches a single warning with joined context.
func (r *WarningRepository) FindDetail(ctx context.Context, id string) (*models.WarningDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE w.id = $1", warningDetailColumns, warningDetailJoins)
	var detail models.WarningDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Recent returns the newest warnings up to limit.
func (r *WarningRepository) Recent(ctx context.Context, limit int) ([]models.WarningDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 5
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY w.created_at DESC LIMIT %d",
		warningDetailColumns, warningDetailJoins, limit)
	var warnings []models.WarningDetail
	if err := r.db.SelectContext(ctx, &warnings, query); err != nil {
		return nil, fmt.Errorf("recent warnings: %w", err)
	}
	return warnings, nil
}

// Create inserts a new warning and raises the owning student's risk flag in
// the same transaction. A new warning always implies risk, so no recompute
// is needed on this path.
func (r *WarningRepository) Create(ctx context.Context, record *models.WarningRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = models.WarningStatusNew
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create warning: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO warning_records (id, student_id, rule_id, content, status, created_at)
        VALUES (:id, :student_id, :rule_id, :content, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, record); err != nil {
		return fmt.Errorf("create warning: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE students SET has_warning = true WHERE id = $1", record.StudentID); err != nil {
		return fmt.Errorf("%w: raise flag for student %s: %v", ErrFlagSync, record.StudentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create warning: %w", err)
	}
	return nil
}

// Update replaces the content and, when set, the rule reference. Status and
// resolution fields are never touched on this path.
func (r *WarningRepository) Update(ctx context.Context, id, content string, ruleID string) error {
	query := "UPDATE warning_records SET content = $2 WHERE id = $1"
	args := []interface{}{id, content}
	if ruleID != "" {
		query = "UPDATE warning_records SET content = $2, rule_id = $3 WHERE id = $1"
		args = append(args, ruleID)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update warning: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update warning rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Resolve marks a warning RESOLVED and re-evaluates the owning student's
// risk flag inside one transaction. The warning row is locked first so two
// concurrent resolutions of a student's last open warnings cannot both
// observe a stale open set.
func (r *WarningRepository) Resolve(ctx context.Context, id, notes, resolvedBy string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve warning: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var studentID string
	if err := tx.GetContext(ctx, &studentID, "SELECT student_id FROM warning_records WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}

	const update = `UPDATE warning_records
        SET status = $2, resolved_at = $3, resolution_notes = $4, resolved_by = $5
        WHERE id = $1`
	var resolver interface{}
	if resolvedBy != "" {
		resolver = resolvedBy
	}
	if _, err := tx.ExecContext(ctx, update, id, models.WarningStatusResolved, at, notes, resolver); err != nil {
		return fmt.Errorf("resolve warning: %w", err)
	}

	if err := syncRiskFlag(ctx, tx, studentID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve warning: %w", err)
	}
	return nil
}

// Delete removes a warning and re-evaluates the owning student's risk flag
// inside one transaction.
func (r *WarningRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete warning: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var studentID string
	if err := tx.GetContext(ctx, &studentID, "SELECT student_id FROM warning_records WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM warning_records WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete warning: %w", err)
	}

	if err := syncRiskFlag(ctx, tx, studentID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete warning: %w", err)
	}
	return nil
}

// SyncRiskFlag recomputes the flag for a student outside of a lifecycle
// transaction. Idempotent; safe to call redundantly.
func (r *WarningRepository) SyncRiskFlag(ctx context.Context, studentID string) error {
	return syncRiskFlag(ctx, r.db, studentID)
}

// syncRiskFlag writes has_warning = "an open warning exists" in a single
// statement so the recompute is atomic with respect to the surrounding
// transaction.
func syncRiskFlag(ctx context.Context, q sqlx.ExecerContext, studentID string) error {
	const query = `UPDATE students
        SET has_warning = EXISTS (
            SELECT 1 FROM warning_records WHERE student_id = $1 AND status <> 'RESOLVED'
        )
        WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("%w: student %s: %v", ErrFlagSync, studentID, err)
	}
	return nil
}

// Count returns the total number of warning records.
func (r *WarningRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM warning_records"); err != nil {
		return 0, fmt.Errorf("count warning records: %w", err)
	}
	return total, nil
}

// CountByStatus returns the number of warnings in the given status.
func (r *WarningRepository) CountByStatus(ctx context.Context, status models.WarningStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM warning_records WHERE status = $1", status); err != nil {
		return 0, fmt.Errorf("count warnings by status: %w", err)
	}
	return total, nil
}

// TypeCounts groups all warnings by the type of their rule.
func (r *WarningRepository) TypeCounts(ctx context.Context) ([]models.TypeCount, error) {
	const query = `SELECT r.type AS type, COUNT(w.id) AS count
        FROM warning_records w
        JOIN warning_rules r ON r.id = w.rule_id
        GROUP BY r.type`
	var counts []models.TypeCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("warning type counts: %w", err)
	}
	return counts, nil
}

// ListCreatedBetween returns the creation-time/status projection for all
// warnings created within [from, to), oldest first.
func (r *WarningRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.WarningTimelineEntry, error) {
	const query = `SELECT created_at, status FROM warning_records
        WHERE created_at >= $1 AND created_at < $2
        ORDER BY created_at ASC`
	var entries []models.WarningTimelineEntry
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, fmt.Errorf("list warnings in window: %w", err)
	}
	return entries, nil
}
