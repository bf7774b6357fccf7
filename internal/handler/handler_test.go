package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
	"github.com/stemsi/analytics-middletier/internal/service"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var jan1 = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error"`
	Metadata response.Metadata   `json:"metadata"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func serve(r *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// ─── Education organizations ──────────────────────────────────────────────

type fakeOrgReader struct {
	rows  []model.EducationOrganizationDimension
	since time.Time
	err   error
}

func (f *fakeOrgReader) ListEducationOrganizations(ctx context.Context) ([]model.EducationOrganizationDimension, error) {
	return f.rows, f.err
}

func (f *fakeOrgReader) GetEducationOrganization(ctx context.Context, key int) (*model.EducationOrganizationDimension, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.rows {
		if f.rows[i].EducationOrganizationKey == key {
			return &f.rows[i], nil
		}
	}
	return nil, service.ErrNotFound
}

func (f *fakeOrgReader) ListEducationOrganizationsModifiedSince(ctx context.Context, since time.Time) ([]model.EducationOrganizationDimension, error) {
	f.since = since
	return f.rows, f.err
}

func orgRouter(reader EducationOrganizationReader) *gin.Engine {
	h := NewEducationOrganizationHandler(reader)
	r := newEngine()
	r.GET("/education-organizations", h.List)
	r.GET("/education-organizations/:key", h.Get)
	return r
}

func TestEducationOrganizationList(t *testing.T) {
	reader := &fakeOrgReader{rows: []model.EducationOrganizationDimension{{
		EducationOrganizationKey: 255901,
		NameOfInstitution:        strPtr("Grand Bend ISD"),
		LastModifiedDate:         jan1,
	}}}
	r := orgRouter(reader)

	w := serve(r, http.MethodGet, "/education-organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	require.NotNil(t, env.Metadata.Count)
	assert.Equal(t, 1, *env.Metadata.Count)

	var rows []model.EducationOrganizationDimension
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 255901, rows[0].EducationOrganizationKey)
	assert.Equal(t, "Grand Bend ISD", *rows[0].NameOfInstitution)
	assert.True(t, jan1.Equal(rows[0].LastModifiedDate))
}

func TestEducationOrganizationListModifiedSince(t *testing.T) {
	reader := &fakeOrgReader{}
	r := orgRouter(reader)

	w := serve(r, http.MethodGet, "/education-organizations?modified_since=2020-12-31T00:00:00Z", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reader.since.Equal(jan1.AddDate(0, 0, -1)))

	w = serve(r, http.MethodGet, "/education-organizations?modified_since=2020-12-31T19:00:00-05:00", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.UTC, reader.since.Location())
	assert.Equal(t, jan1, reader.since)

	w = serve(r, http.MethodGet, "/education-organizations?modified_since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.ErrInvalidQuery, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "modified_since")
}

func TestEducationOrganizationGet(t *testing.T) {
	r := orgRouter(&fakeOrgReader{rows: []model.EducationOrganizationDimension{{
		EducationOrganizationKey: 255901,
		LastModifiedDate:         jan1,
	}}})

	cases := []struct {
		name   string
		path   string
		status int
		code   response.ErrCode
	}{
		{"known key and return 200", "/education-organizations/255901", http.StatusOK, ""},
		{"unknown key and return 404", "/education-organizations/1", http.StatusNotFound, response.ErrNotFound},
		{"non numeric key and return 400", "/education-organizations/abc", http.StatusBadRequest, response.ErrInvalidID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			if tc.code == "" {
				assert.Nil(t, env.Error)
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestEducationOrganizationInternalError(t *testing.T) {
	r := orgRouter(&fakeOrgReader{err: errors.New("connection refused")})

	w := serve(r, http.MethodGet, "/education-organizations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.ErrInternal, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

// ─── User authorizations ──────────────────────────────────────────────────

type fakeAuthReader struct {
	rows []model.UserAuthorization
	call string
}

func (f *fakeAuthReader) ListUserAuthorizations(ctx context.Context) ([]model.UserAuthorization, error) {
	f.call = "all"
	return f.rows, nil
}

func (f *fakeAuthReader) ListUserAuthorizationsByUser(ctx context.Context, userKey int) ([]model.UserAuthorization, error) {
	f.call = "user"
	var out []model.UserAuthorization
	for _, r := range f.rows {
		if r.UserKey == userKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAuthReader) ListUserAuthorizationsByDistrict(ctx context.Context, districtID int) ([]model.UserAuthorization, error) {
	f.call = "district"
	return inDistrict(f.rows, districtID), nil
}

func TestUserAuthorizationList(t *testing.T) {
	reader := &fakeAuthReader{rows: []model.UserAuthorization{
		{UserKey: 100, UserScope: strPtr("District"), StudentPermission: "All", DistrictID: intPtr(255901)},
		{UserKey: 100, UserScope: strPtr("District"), StudentPermission: "All", DistrictID: intPtr(867530)},
		{UserKey: 200, UserScope: strPtr("School"), StudentPermission: "ALL", SchoolPermission: strPtr("255901001")},
	}}
	h := NewUserAuthorizationHandler(reader)
	r := newEngine()
	r.GET("/user-authorizations", h.List)

	cases := []struct {
		name  string
		query string
		call  string
		count int
	}{
		{"no filter", "", "all", 3},
		{"by user", "?user_key=100", "user", 2},
		{"by district", "?district_id=255901", "district", 1},
		{"by user and district", "?user_key=100&district_id=867530", "user", 1},
		{"school user has no district", "?user_key=200&district_id=255901", "user", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/user-authorizations"+tc.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.call, reader.call)

			env := decode(t, w)
			require.NotNil(t, env.Metadata.Count)
			assert.Equal(t, tc.count, *env.Metadata.Count)
		})
	}

	w := serve(r, http.MethodGet, "/user-authorizations?user_key=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Fields, "user_key")
}

func TestUserAuthorizationNullsSerialized(t *testing.T) {
	h := NewUserAuthorizationHandler(&fakeAuthReader{rows: []model.UserAuthorization{
		{UserKey: 100, UserScope: strPtr("District"), StudentPermission: "All", DistrictID: intPtr(255901)},
	}})
	r := newEngine()
	r.GET("/user-authorizations", h.List)

	w := serve(r, http.MethodGet, "/user-authorizations", nil)
	assert.Contains(t, w.Body.String(), `"section_permission":null`)
	assert.Contains(t, w.Body.String(), `"school_permission":null`)
	assert.Contains(t, w.Body.String(), `"district_id":255901`)
}

// ─── Fixtures ─────────────────────────────────────────────────────────────

const handlerFixture = `{
  "education_organizations": [
    {"education_organization_key": 255901, "name_of_institution": "Grand Bend ISD", "last_modified_date": "2021-01-01"}
  ],
  "user_authorizations": [
    {"user_key": 100, "user_scope": "District", "student_permission": "All", "district_id": 255901}
  ]
}`

type fakeStager struct {
	staged  *fixture.Fixture
	replace bool
}

func (f *fakeStager) Stage(ctx context.Context, fx *fixture.Fixture, replace bool) (*service.StageResult, error) {
	f.staged = fx
	f.replace = replace
	return &service.StageResult{
		EducationOrganizations: int64(len(fx.EducationOrganizations)),
		UserAuthorizations:     int64(len(fx.UserAuthorizations)),
		Replaced:               replace,
	}, nil
}

func TestFixtureStage(t *testing.T) {
	stager := &fakeStager{}
	h := NewFixtureHandler(stager)
	r := newEngine()
	r.POST("/fixtures/stage", h.Stage)

	w := serve(r, http.MethodPost, "/fixtures/stage?replace=true", []byte(handlerFixture))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, stager.replace)
	require.NotNil(t, stager.staged)
	assert.Len(t, stager.staged.UserAuthorizations, 1)

	w = serve(r, http.MethodPost, "/fixtures/stage?replace=maybe", []byte(handlerFixture))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidQuery, decode(t, w).Error.Code)
}

func TestFixtureStageRejectsInvalidFixture(t *testing.T) {
	stager := &fakeStager{}
	h := NewFixtureHandler(stager)
	r := newEngine()
	r.POST("/fixtures/stage", h.Stage)

	doc := `{"user_authorizations": [{"user_key": 1, "student_permission": "NONE"}]}`
	w := serve(r, http.MethodPost, "/fixtures/stage", []byte(doc))
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "user_authorizations[0].student_permission")
	assert.Nil(t, stager.staged)
}

// ─── Verifications ────────────────────────────────────────────────────────

const reportID = "0b6c7d1e-8f3a-4b7e-9c2d-5a1f0e3b4c6d"

type fakeVerifier struct {
	queued []byte
	report *model.VerificationReport
}

func (f *fakeVerifier) Verify(ctx context.Context, fx *fixture.Fixture) (*model.VerificationReport, error) {
	return f.report, nil
}

func (f *fakeVerifier) Enqueue(ctx context.Context, raw []byte) (string, error) {
	if _, err := fixture.LoadBytes(raw); err != nil {
		return "", err
	}
	f.queued = raw
	return reportID, nil
}

func (f *fakeVerifier) Result(ctx context.Context, id string) (*model.VerificationReport, error) {
	if f.report == nil || f.report.ID != id {
		return nil, service.ErrReportNotFound
	}
	return f.report, nil
}

func verificationRouter(v Verifier) *gin.Engine {
	h := NewVerificationHandler(v)
	r := newEngine()
	r.POST("/verifications", h.Verify)
	r.POST("/verifications/async", h.Enqueue)
	r.GET("/verifications/:id", h.Result)
	return r
}

func TestVerifyReturnsReportOnMismatch(t *testing.T) {
	v := &fakeVerifier{report: &model.VerificationReport{
		ID:     reportID,
		Passed: false,
		Mismatches: []model.Mismatch{{
			View: "epp_eppdim", Kind: model.MismatchField, Key: "255901",
			Field: "NameOfInstitution", Expected: "Grand Bend ISD", Actual: "Grand Bend",
		}},
	}}
	r := verificationRouter(v)

	w := serve(r, http.MethodPost, "/verifications", []byte(handlerFixture))
	require.Equal(t, http.StatusOK, w.Code)

	var report model.VerificationReport
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	assert.False(t, report.Passed)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "NameOfInstitution", report.Mismatches[0].Field)
}

func TestVerifyAsync(t *testing.T) {
	v := &fakeVerifier{}
	r := verificationRouter(v)

	w := serve(r, http.MethodPost, "/verifications/async", []byte(handlerFixture))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/verifications/"+reportID, w.Header().Get("Location"))
	assert.JSONEq(t, handlerFixture, string(v.queued))

	var accepted model.VerificationAccepted
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &accepted))
	assert.Equal(t, reportID, accepted.ID)

	w = serve(r, http.MethodPost, "/verifications/async", []byte(`{"schools": []}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerificationResult(t *testing.T) {
	v := &fakeVerifier{}
	r := verificationRouter(v)

	w := serve(r, http.MethodGet, "/verifications/"+reportID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrReportNotReady, decode(t, w).Error.Code)

	v.report = &model.VerificationReport{ID: reportID, Passed: true}
	w = serve(r, http.MethodGet, "/verifications/"+reportID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/verifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)
}

func TestVerificationResultFailedJob(t *testing.T) {
	v := &fakeVerifier{report: &model.VerificationReport{
		ID:         reportID,
		Status:     model.ReportFailed,
		Error:      "read education organizations: connection refused",
		Mismatches: []model.Mismatch{},
	}}
	r := verificationRouter(v)

	w := serve(r, http.MethodGet, "/verifications/"+reportID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report model.VerificationReport
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	assert.Equal(t, model.ReportFailed, report.Status)
	assert.Contains(t, report.Error, "connection refused")
	assert.False(t, report.Passed)
}

// ─── Auth ─────────────────────────────────────────────────────────────────

type fakeIssuer struct{}

func (fakeIssuer) IssueToken(ctx context.Context, clientID, secret string) (*model.TokenResponse, error) {
	if clientID != "etl-runner" || secret != "correct horse battery" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.TokenResponse{AccessToken: "signed", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func TestToken(t *testing.T) {
	h := NewAuthHandler(fakeIssuer{})
	r := newEngine()
	r.POST("/auth/token", h.Token)

	cases := []struct {
		name   string
		body   string
		status int
		code   response.ErrCode
	}{
		{"valid credentials and return 200", `{"client_id":"etl-runner","client_secret":"correct horse battery"}`, http.StatusOK, ""},
		{"wrong secret and return 401", `{"client_id":"etl-runner","client_secret":"incorrect horse"}`, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"short secret and return 400", `{"client_id":"etl-runner","client_secret":"short"}`, http.StatusBadRequest, response.ErrValidation},
		{"missing client and return 400", `{"client_secret":"correct horse battery"}`, http.StatusBadRequest, response.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/auth/token", []byte(tc.body))
			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			if tc.code == "" {
				var token model.TokenResponse
				require.NoError(t, json.Unmarshal(env.Data, &token))
				assert.Equal(t, "Bearer", token.TokenType)
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

// ─── Health ───────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	up := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("dial tcp: refused") }

	r := newEngine()
	r.GET("/ok", NewHealthHandler(map[string]HealthCheck{"postgres": up, "redis": up}, zerolog.Nop()).Health)
	r.GET("/degraded", NewHealthHandler(map[string]HealthCheck{"postgres": up, "redis": down}, zerolog.Nop()).Health)

	w := serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = serve(r, http.MethodGet, "/degraded", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
}
