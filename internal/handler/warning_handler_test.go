package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-risk-api/internal/dto"
	"github.com/noah-isme/academic-risk-api/internal/middleware"
	"github.com/noah-isme/academic-risk-api/internal/models"
	"github.com/noah-isme/academic-risk-api/internal/service"
	appErrors "github.com/noah-isme/academic-risk-api/pkg/errors"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type fakeLifecycleSrv struct {
	resp      *dto.WarningResponse
	err       error
	lastActor string
	lastReq   interface{}
}

func (f *fakeLifecycleSrv) Create(_ context.Context, req service.CreateWarningRequest) (*dto.WarningResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeLifecycleSrv) Update(_ context.Context, _ string, req service.UpdateWarningRequest) (*dto.WarningResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeLifecycleSrv) Resolve(_ context.Context, _ string, req service.ResolveWarningRequest, actorID string) (*dto.WarningResponse, error) {
	f.lastReq = req
	f.lastActor = actorID
	return f.resp, f.err
}

func (f *fakeLifecycleSrv) Delete(context.Context, string) error {
	return f.err
}

type fakeQuerySrv struct {
	page      *service.WarningPage
	warning   *dto.WarningResponse
	warnings  []dto.WarningResponse
	types     []dto.WarningTypeResponse
	export    *service.ExportResult
	err       error
	lastQuery service.ListWarningsQuery
	lastLimit int
}

func (f *fakeQuerySrv) List(_ context.Context, query service.ListWarningsQuery) (*service.WarningPage, error) {
	f.lastQuery = query
	return f.page, f.err
}

func (f *fakeQuerySrv) Get(context.Context, string) (*dto.WarningResponse, error) {
	return f.warning, f.err
}

func (f *fakeQuerySrv) Recent(_ context.Context, limit int) ([]dto.WarningResponse, error) {
	f.lastLimit = limit
	return f.warnings, f.err
}

func (f *fakeQuerySrv) ByStudent(context.Context, string, int, int) (*service.WarningPage, error) {
	return f.page, f.err
}

func (f *fakeQuerySrv) Types(context.Context) ([]dto.WarningTypeResponse, error) {
	return f.types, f.err
}

func (f *fakeQuerySrv) Export(_ context.Context, query service.ListWarningsQuery, _ service.ExportFormat) (*service.ExportResult, error) {
	f.lastQuery = query
	return f.export, f.err
}

func testContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func TestWarningHandlerListParsesQuery(t *testing.T) {
	queries := &fakeQuerySrv{page: &service.WarningPage{
		Items:      []dto.WarningResponse{{ID: "w-1"}},
		Pagination: models.Pagination{Page: 2, PageSize: 5, TotalCount: 11},
	}}
	h := NewWarningHandler(&fakeLifecycleSrv{}, queries)

	c, rec := testContext(t, http.MethodGet, "/warnings?studentName=Alice&warningType=SEVERE&status=NEW&page=2&pageSize=5", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", queries.lastQuery.StudentName)
	assert.Equal(t, models.WarningTypeSevere, queries.lastQuery.WarningType)
	assert.Equal(t, models.WarningStatusNew, queries.lastQuery.Status)
	assert.Equal(t, 2, queries.lastQuery.Page)
	assert.Equal(t, 5, queries.lastQuery.PageSize)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(11), envelope.Pagination["total_count"])
}

func TestWarningHandlerListInvalidPage(t *testing.T) {
	h := NewWarningHandler(&fakeLifecycleSrv{}, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodGet, "/warnings?page=-1", "")
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarningHandlerCreate(t *testing.T) {
	lifecycle := &fakeLifecycleSrv{resp: &dto.WarningResponse{ID: "w-1", Status: models.WarningStatusNew}}
	h := NewWarningHandler(lifecycle, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodPost, "/warnings", `{"student_id":"st-1","rule_id":"rule-1","content":"Failing grade"}`)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	req, ok := lifecycle.lastReq.(service.CreateWarningRequest)
	require.True(t, ok)
	assert.Equal(t, "st-1", req.StudentID)
}

func TestWarningHandlerCreateInvalidPayload(t *testing.T) {
	h := NewWarningHandler(&fakeLifecycleSrv{}, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodPost, "/warnings", `{"student_id":`)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarningHandlerResolveUsesClaims(t *testing.T) {
	lifecycle := &fakeLifecycleSrv{resp: &dto.WarningResponse{ID: "w-1", Status: models.WarningStatusResolved}}
	h := NewWarningHandler(lifecycle, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodPost, "/warnings/w-1/resolve", `{"solution":"tutoring arranged"}`)
	c.Params = gin.Params{{Key: "id", Value: "w-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})
	h.Resolve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", lifecycle.lastActor)
	req, ok := lifecycle.lastReq.(service.ResolveWarningRequest)
	require.True(t, ok)
	assert.Equal(t, "tutoring arranged", req.Solution)
}

func TestWarningHandlerResolveNotFound(t *testing.T) {
	lifecycle := &fakeLifecycleSrv{err: appErrors.Clone(appErrors.ErrNotFound, "warning not found")}
	h := NewWarningHandler(lifecycle, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodPost, "/warnings/ghost/resolve", `{"solution":"done"}`)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	h.Resolve(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Error["code"])
}

func TestWarningHandlerDelete(t *testing.T) {
	h := NewWarningHandler(&fakeLifecycleSrv{}, &fakeQuerySrv{})

	c, rec := testContext(t, http.MethodDelete, "/warnings/w-1", "")
	c.Params = gin.Params{{Key: "id", Value: "w-1"}}
	h.Delete(c)
	// gin defers the status write until the response is flushed.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWarningHandlerRecentLimit(t *testing.T) {
	queries := &fakeQuerySrv{warnings: []dto.WarningResponse{}}
	h := NewWarningHandler(&fakeLifecycleSrv{}, queries)

	c, rec := testContext(t, http.MethodGet, "/warnings/recent?limit=3", "")
	h.Recent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, queries.lastLimit)

	c, rec = testContext(t, http.MethodGet, "/warnings/recent?limit=abc", "")
	h.Recent(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarningHandlerExport(t *testing.T) {
	queries := &fakeQuerySrv{export: &service.ExportResult{
		Content:     []byte("Student,Status\n"),
		ContentType: "text/csv",
		Filename:    "warnings-20240520.csv",
	}}
	h := NewWarningHandler(&fakeLifecycleSrv{}, queries)

	c, rec := testContext(t, http.MethodGet, "/warnings/export?format=csv", "")
	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "warnings-20240520.csv")
}
