package httpx_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/platform/httpx"
)

type upstreamErr struct {
	status int
	fields map[string]string
}

func (e upstreamErr) Error() string                  { return "upstream" }
func (e upstreamErr) HTTPStatus() int                { return e.status }
func (e upstreamErr) FieldErrors() map[string]string { return e.fields }
func (e upstreamErr) UserMessage() string            { return "Invalid Credentials" }

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("load: %w", httpx.ErrNotFound): http.StatusNotFound,
		httpx.ErrConflict:                         http.StatusConflict,
		httpx.ErrValidation:                       http.StatusBadRequest,
		httpx.ErrForbidden:                        http.StatusForbidden,
		httpx.ErrUnauthorized:                     http.StatusUnauthorized,
		fmt.Errorf("boom"):                        http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		httpx.RespondError(rec, err)
		assert.Equal(t, status, rec.Code, err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestRespondErrorRendersFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.RespondError(rec, fmt.Errorf("login: %w", upstreamErr{
		status: http.StatusBadRequest,
		fields: map[string]string{"password": "invalid"},
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, map[string]string{"password": "invalid"}, problem.Errors)
	assert.Equal(t, "Invalid Credentials", problem.Detail)
}

func TestRespondErrorUsesCarriedStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.RespondError(rec, upstreamErr{status: http.StatusBadGateway})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, "Bad Gateway", problem.Title)
	assert.Empty(t, problem.Errors)
}

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeAndValidateReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"ana"}`))
	rec := httptest.NewRecorder()

	var body loginBody
	ok := httpx.DecodeAndValidate(rec, req, httpx.NewValidator(), &body)
	require.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]string{"password": "required"}, decodeProblem(t, rec).Errors)
}

func TestDecodeAndValidateRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"a","password":"b","role":"admin"}`))
	rec := httptest.NewRecorder()

	var body loginBody
	require.False(t, httpx.DecodeAndValidate(rec, req, httpx.NewValidator(), &body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProblemJSONCarriesExtensionMembers(t *testing.T) {
	body := struct {
		httpx.ProblemDetail
		Redirect string `json:"redirect"`
	}{ProblemDetail: httpx.ProblemFor(httpx.ErrUnauthorized), Redirect: "/login"}

	rec := httptest.NewRecorder()
	httpx.ProblemJSON(rec, body.Status, body)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Unauthorized","status":401,"detail":"unauthorized","redirect":"/login"}`, rec.Body.String())
}

func TestProblemForUnknownErrorHidesDetail(t *testing.T) {
	p := httpx.ProblemFor(fmt.Errorf("dial tcp: refused"))
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Empty(t, p.Detail)
}
