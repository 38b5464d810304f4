package timetable_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/platform/httpx"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
	"github.com/schooldesk/schooldesk/internal/timetable"
	_ "github.com/schooldesk/schooldesk/testing"
)

type stubCredentials struct {
	tokenErr  error
	expired   []string
	locations []string
}

func (s *stubCredentials) Token(ctx context.Context, clientID string) (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return "tok-" + clientID, nil
}

func (s *stubCredentials) Expire(ctx context.Context, clientID, location string) (session.Result, error) {
	s.expired = append(s.expired, clientID)
	s.locations = append(s.locations, location)
	return session.Result{
		Redirect: &session.Redirect{Path: session.LoginPath, ReturnTo: location},
		Notices:  []session.Notice{{Level: "error", Message: "Your session has expired"}},
	}, nil
}

func newRouter(t *testing.T, api *stubBackend, creds *stubCredentials) chi.Router {
	t.Helper()
	svc := newService(t, api, settings.Defaults(), nil)
	r := chi.NewRouter()
	r.Route("/api/timetables", timetable.NewHandler(nil, svc, storage.NewMemoryProvider(), creds).MountRoutes)
	return r
}

func call(t *testing.T, r chi.Router, clientID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(shared.ContextWithClient(req.Context(), clientID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func snapshotOf(t *testing.T, rec *httptest.ResponseRecorder) timetable.Snapshot {
	t.Helper()
	var snap timetable.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestHandlerEditingFlow(t *testing.T) {
	api := newStubBackend()
	r := newRouter(t, api, &stubCredentials{})

	rec := call(t, r, "c1", http.MethodPost, "/api/timetables/7/editor", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	editorURL := "/api/timetables/editors/" + snapshotOf(t, rec).ID

	rec = call(t, r, "c1", http.MethodPost, editorURL+"/cells", `{"subject_id":1,"day":3,"slot":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	placed := snapshotOf(t, rec)
	assert.Len(t, placed.Cells, 3)
	assert.Equal(t, 2, placed.Remaining[0].Hours)

	rec = call(t, r, "c1", http.MethodPost, editorURL+"/cells", `{"subject_id":2,"day":3,"slot":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, r, "c1", http.MethodPatch, editorURL+"/cells/0", `{"day":1,"slot":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, r, "c1", http.MethodDelete, editorURL+"/cells/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, snapshotOf(t, rec).Remaining[1].Hours)

	rec = call(t, r, "c1", http.MethodDelete, editorURL+"/cells/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, r, "c1", http.MethodGet, editorURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, snapshotOf(t, rec).Cells, 2)

	rec = call(t, r, "c2", http.MethodGet, editorURL, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, r, "c1", http.MethodPost, editorURL+"/submit", `{"next_week":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, timetable.StatusSubmitted, snapshotOf(t, rec).Status)
	require.Len(t, api.submitted, 1)
	matrix := api.submitted[0].Matrix
	assert.Equal(t, int64(1), *matrix[1][1])
	assert.Equal(t, int64(1), *matrix[3][0])
	assert.Nil(t, matrix[0][2])

	rec = call(t, r, "c1", http.MethodGet, editorURL, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerValidatesPlacement(t *testing.T) {
	r := newRouter(t, newStubBackend(), &stubCredentials{})
	rec := call(t, r, "c1", http.MethodPost, "/api/timetables/7/editor", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	editorURL := "/api/timetables/editors/" + snapshotOf(t, rec).ID

	rec = call(t, r, "c1", http.MethodPost, editorURL+"/cells", `{"subject_id":1,"day":9,"slot":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"day":"lt"`)

	rec = call(t, r, "c1", http.MethodPost, editorURL+"/cells", `{"subject_id":1,"slot":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, r, "c1", http.MethodPatch, editorURL+"/cells/abc", `{"day":1,"slot":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerExpiresClientOnRejectedCredential(t *testing.T) {
	api := newStubBackend()
	api.loadErr = &backend.APIError{Status: http.StatusUnauthorized, Code: "token_expired"}
	creds := &stubCredentials{}
	r := newRouter(t, api, creds)

	req := httptest.NewRequest(http.MethodPost, "/api/timetables/7/editor", nil)
	req.Header.Set("Referer", "http://example.com/timetables/7?week=2")
	req = req.WithContext(shared.ContextWithClient(req.Context(), "c1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body struct {
		Status   int               `json:"status"`
		Redirect *session.Redirect `json:"redirect"`
		Notices  []session.Notice  `json:"notices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	require.NotNil(t, body.Redirect)
	assert.Equal(t, "/login", body.Redirect.Path)
	assert.Equal(t, "/timetables/7?week=2", body.Redirect.ReturnTo)
	assert.Len(t, body.Notices, 1)
	assert.Equal(t, []string{"c1"}, creds.expired)
	assert.Equal(t, []string{"/timetables/7?week=2"}, creds.locations)
}

func TestHandlerRequiresCredential(t *testing.T) {
	creds := &stubCredentials{tokenErr: shared.ErrUnauthorized}
	r := newRouter(t, newStubBackend(), creds)

	rec := call(t, r, "c1", http.MethodPost, "/api/timetables/7/editor", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, r, "c1", http.MethodPost, "/api/timetables/nope/editor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlacementErrorsMapToConflict(t *testing.T) {
	for _, err := range []error{timetable.ErrNoHoursRemaining, timetable.ErrSlotOccupied} {
		assert.Equal(t, http.StatusConflict, httpx.ProblemFor(err).Status, err.Error())
	}
}
