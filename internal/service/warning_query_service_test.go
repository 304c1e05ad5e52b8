package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-risk-api/internal/models"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

type fakeSearchRepo struct {
	details    []models.WarningDetail
	total      int
	lastFilter models.WarningFilter
	listCalls  int
}

func (f *fakeSearchRepo) List(_ context.Context, filter models.WarningFilter) ([]models.WarningDetail, int, error) {
	f.lastFilter = filter
	f.listCalls++
	return f.details, f.total, nil
}

func (f *fakeSearchRepo) FindDetail(_ context.Context, id string) (*models.WarningDetail, error) {
	for i := range f.details {
		if f.details[i].ID == id {
			return &f.details[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSearchRepo) Recent(_ context.Context, limit int) ([]models.WarningDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > len(f.details) {
		limit = len(f.details)
	}
	return f.details[:limit], nil
}

type fakeRuleResolver struct {
	idsByType map[models.WarningType][]string
	active    []models.WarningType
}

func (f *fakeRuleResolver) IDsByType(_ context.Context, t models.WarningType) ([]string, error) {
	return f.idsByType[t], nil
}

func (f *fakeRuleResolver) ActiveTypes(context.Context) ([]models.WarningType, error) {
	return f.active, nil
}

func severeDetails() []models.WarningDetail {
	return []models.WarningDetail{
		{
			WarningRecord: models.WarningRecord{ID: "w-1", StudentID: "st-1", Content: "GPA below 1.0", Status: models.WarningStatusNew, CreatedAt: time.Now()},
			StudentName:   "Alice Chen", StudentNumber: "S-1001",
			RuleName: "Severe Risk", RuleType: models.WarningTypeSevere, RuleLevel: 3,
		},
		{
			WarningRecord: models.WarningRecord{ID: "w-2", StudentID: "st-2", Content: "Multiple severe flags", Status: models.WarningStatusRead, CreatedAt: time.Now()},
			StudentName:   "Bob Diaz", StudentNumber: "S-1002",
			RuleName: "Severe Risk", RuleType: models.WarningTypeSevere, RuleLevel: 3,
		},
	}
}

func newQueryFixture(repo *fakeSearchRepo, rules *fakeRuleResolver) *WarningQueryService {
	students := &fakeStudentReader{students: map[string]*models.Student{
		"st-1": {ID: "st-1", FullName: "Alice Chen"},
	}}
	return NewWarningQueryService(repo, rules, students, 1000, nil)
}

func TestWarningQueryListByType(t *testing.T) {
	repo := &fakeSearchRepo{details: severeDetails(), total: 2}
	rules := &fakeRuleResolver{idsByType: map[models.WarningType][]string{
		models.WarningTypeSevere: {"rule-9"},
	}}
	svc := newQueryFixture(repo, rules)

	page, err := svc.List(context.Background(), ListWarningsQuery{WarningType: models.WarningTypeSevere})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Pagination.TotalCount)
	assert.Equal(t, []string{"rule-9"}, repo.lastFilter.RuleIDs)
}

func TestWarningQueryListTypeWithoutRules(t *testing.T) {
	repo := &fakeSearchRepo{details: severeDetails(), total: 2}
	svc := newQueryFixture(repo, &fakeRuleResolver{})

	page, err := svc.List(context.Background(), ListWarningsQuery{WarningType: models.WarningTypeSevere, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.Pagination.TotalCount)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Zero(t, repo.listCalls, "the warning table is not queried")
}

func TestWarningQueryListInvalidStatus(t *testing.T) {
	svc := newQueryFixture(&fakeSearchRepo{}, &fakeRuleResolver{})

	_, err := svc.List(context.Background(), ListWarningsQuery{Status: models.WarningStatus("CLOSED")})
	appErr := appErrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestWarningQueryListPaginationEcho(t *testing.T) {
	repo := &fakeSearchRepo{details: severeDetails(), total: 42}
	svc := newQueryFixture(repo, &fakeRuleResolver{})

	page, err := svc.List(context.Background(), ListWarningsQuery{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Page)
	assert.Equal(t, 2, page.Pagination.PageSize)
	assert.Equal(t, 42, page.Pagination.TotalCount)
	assert.Equal(t, 3, repo.lastFilter.Page)
}

func TestWarningQueryGetMissing(t *testing.T) {
	svc := newQueryFixture(&fakeSearchRepo{}, &fakeRuleResolver{})

	_, err := svc.Get(context.Background(), "ghost")
	appErr := appErrors.FromError(err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestWarningQueryByStudent(t *testing.T) {
	repo := &fakeSearchRepo{details: severeDetails()[:1], total: 1}
	svc := newQueryFixture(repo, &fakeRuleResolver{})

	page, err := svc.ByStudent(context.Background(), "st-1", 0, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Pagination.TotalCount)
	assert.Equal(t, "st-1", repo.lastFilter.StudentID)
	assert.Equal(t, 20, repo.lastFilter.PageSize)

	_, err = svc.ByStudent(context.Background(), "ghost", 0, 20)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "student not found", appErr.Message)
}

func TestWarningQueryTypes(t *testing.T) {
	rules := &fakeRuleResolver{active: []models.WarningType{
		models.WarningTypeCourseGrade,
		models.WarningTypeSevere,
	}}
	svc := newQueryFixture(&fakeSearchRepo{}, rules)

	types, err := svc.Types(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, models.WarningTypeCourseGrade, types[0].Code)
	assert.Equal(t, "Course Grade Warning", types[0].Name)
	assert.Equal(t, "Severe Academic Warning", types[1].Name)
}

func TestWarningQueryExportCSV(t *testing.T) {
	repo := &fakeSearchRepo{details: severeDetails(), total: 2}
	svc := newQueryFixture(repo, &fakeRuleResolver{})

	result, err := svc.Export(context.Background(), ListWarningsQuery{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Student")
	assert.Contains(t, lines[1], "Alice Chen")
	assert.Contains(t, lines[1], "Severe Academic Warning")
	assert.Equal(t, 1000, repo.lastFilter.PageSize)
}

func TestWarningQueryExportUnknownFormat(t *testing.T) {
	svc := newQueryFixture(&fakeSearchRepo{}, &fakeRuleResolver{})

	_, err := svc.Export(context.Background(), ListWarningsQuery{}, ExportFormat("xlsx"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
