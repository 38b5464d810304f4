package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/shared"
)

func TestLoginDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		var creds backend.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "teacher1", creds.Username)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok","expires_at":1900000000,"session_id":"s1","current_role":"teacher",
			"current_school_model":null,"current_region_model":{"id":3,"name":"North"},
			"user":{"id":9,"username":"teacher1","read_permissions":["timetable"]}}`))
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL+"/api/", time.Second)
	resp, err := client.Login(context.Background(), backend.Credentials{Username: "teacher1", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, int64(1900000000), resp.ExpiresAt)
	assert.Nil(t, resp.CurrentSchoolModel)
	require.NotNil(t, resp.CurrentRegionModel)
	assert.Equal(t, "North", resp.CurrentRegionModel.Name)
	assert.Equal(t, []string{"timetable"}, resp.User.Read)
}

func TestFieldErrorsBecomeKeyCodeMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"key":"username","code":"required"},{"key":"password","code":"too_short"},{"key":"username","code":"ignored"}]}`))
	}))
	defer srv.Close()

	_, err := backend.NewClient(srv.URL, time.Second).Login(context.Background(), backend.Credentials{})
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, map[string]string{"username": "required", "password": "too_short"}, apiErr.Fields)
}

func TestUnauthorizedUnwrapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer expired", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"token_expired"}`))
	}))
	defer srv.Close()

	_, err := backend.NewClient(srv.URL, time.Second).Permissions(context.Background(), "expired")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Token Expired", apiErr.UserMessage())
}

func TestListEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))
		assert.Equal(t, "math", q.Get("search"))
		assert.Equal(t, "-year,title", q.Get("sort"))
		assert.Equal(t, "Euler", q.Get("author"))
		_, _ = w.Write([]byte(`{"count":21,"results":[{"id":1}]}`))
	}))
	defer srv.Close()

	page, err := backend.NewClient(srv.URL, time.Second).List(context.Background(), "tok", "books", backend.ListOptions{
		Limit:   10,
		Offset:  20,
		Search:  "math",
		Sort:    []string{"-year", "title"},
		Filters: map[string]string{"author": "Euler", "year": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 21, page.Count)
	assert.Len(t, page.Results, 1)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Invalid Credentials", backend.Humanize("invalid_credentials"))
	assert.Equal(t, "Request Failed", backend.Humanize(""))
}
