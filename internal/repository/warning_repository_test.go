package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-risk-api/internal/models"
)

func newWarningMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func detailColumns() []string {
	return []string{
		"id", "student_id", "rule_id", "content", "status", "created_at",
		"resolved_at", "resolution_notes", "resolved_by",
		"student_name", "student_number", "rule_name", "rule_type", "rule_level", "rule_color",
		"resolved_by_name",
	}
}

func detailRow(rows *sqlmock.Rows, id, studentID, status string) *sqlmock.Rows {
	return rows.AddRow(
		id, studentID, "rule-1", "Failing grade in Algebra", status, time.Now(),
		nil, nil, nil,
		"Alice Chen", "S-1001", "Course Grade Alert", "COURSE_GRADE", 2, "#FFA500",
		nil,
	)
}

func TestWarningRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	rows := detailRow(sqlmock.NewRows(detailColumns()), "w-1", "st-1", "NEW")
	mock.ExpectQuery(`(?s)SELECT w\.id, .+ FROM warning_records w.+WHERE 1=1 AND s\.full_name LIKE \$1 AND w\.rule_id = ANY\(\$2\) AND w\.status = \$3 ORDER BY w\.created_at DESC LIMIT 10 OFFSET 0`).
		WithArgs("%Alice%", sqlmock.AnyArg(), models.WarningStatusNew).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM warning_records w`).
		WithArgs("%Alice%", sqlmock.AnyArg(), models.WarningStatusNew).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	warnings, total, err := repo.List(context.Background(), models.WarningFilter{
		StudentName: "Alice",
		RuleIDs:     []string{"rule-1", "rule-2"},
		Status:      models.WarningStatusNew,
	})
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Alice Chen", warnings[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryListPagination(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectQuery(`LIMIT 5 OFFSET 10`).
		WillReturnRows(sqlmock.NewRows(detailColumns()))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM warning_records w`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	warnings, total, err := repo.List(context.Background(), models.WarningFilter{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryCreateRaisesFlag(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO warning_records").
		WithArgs(sqlmock.AnyArg(), "st-1", "rule-1", "content", models.WarningStatusNew, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE students SET has_warning = true WHERE id = \$1`).
		WithArgs("st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := &models.WarningRecord{StudentID: "st-1", RuleID: "rule-1", Content: "content"}
	err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.WarningStatusNew, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryResolveSyncsFlag(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT student_id FROM warning_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("w-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("st-1"))
	mock.ExpectExec(`UPDATE warning_records`).
		WithArgs("w-1", models.WarningStatusResolved, now, "tutoring arranged", "user-9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students\s+SET has_warning = EXISTS`).
		WithArgs("st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Resolve(context.Background(), "w-1", "tutoring arranged", "user-9", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryResolveMissing(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT student_id FROM warning_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), "missing", "notes", "", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryDeleteSyncsFlag(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT student_id FROM warning_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("w-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("st-1"))
	mock.ExpectExec(`DELETE FROM warning_records WHERE id = \$1`).
		WithArgs("w-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students\s+SET has_warning = EXISTS`).
		WithArgs("st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "w-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryDeleteFlagSyncFailure(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT student_id FROM warning_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("w-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("st-1"))
	mock.ExpectExec(`DELETE FROM warning_records WHERE id = \$1`).
		WithArgs("w-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students\s+SET has_warning = EXISTS`).
		WithArgs("st-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "w-1")
	assert.ErrorIs(t, err, ErrFlagSync)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectExec(`UPDATE warning_records SET content = \$2 WHERE id = \$1`).
		WithArgs("missing", "new content").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", "new content", "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarningRepositoryTypeCounts(t *testing.T) {
	db, mock, cleanup := newWarningMock(t)
	defer cleanup()
	repo := NewWarningRepository(db)

	mock.ExpectQuery(`SELECT r\.type AS type, COUNT\(w\.id\) AS count`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).
			AddRow("COURSE_GRADE", 3).
			AddRow("SEVERE", 1))

	counts, err := repo.TypeCounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, models.WarningTypeCourseGrade, counts[0].Type)
	assert.Equal(t, 3, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
