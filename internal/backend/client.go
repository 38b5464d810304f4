// Package backend talks to the upstream school REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps interactions with the school backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login authenticates credentials and opens a backend session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile switches the active school, region or period and returns a
// fresh token.
func (c *Client) UpdateProfile(ctx context.Context, token string, req ProfileRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/profile", token, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession closes a backend session.
func (c *Client) DeleteSession(ctx context.Context, token, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/auth/sessions/"+url.PathEscape(sessionID), token, nil, nil, nil)
}

// Permissions fetches the permission sets bound to token.
func (c *Client) Permissions(ctx context.Context, token string) (*Permissions, error) {
	var out Permissions
	if err := c.do(ctx, http.MethodGet, "/auth/permissions", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings fetches dashboard settings.
func (c *Client) Settings(ctx context.Context, token string) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodGet, "/settings", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassroomSubjects lists the subjects assigned to a classroom.
func (c *Client) ClassroomSubjects(ctx context.Context, token string, classroomID int64) ([]ClassroomSubject, error) {
	var out []ClassroomSubject
	path := fmt.Sprintf("/classrooms/%d/subjects", classroomID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassroomTimetable fetches the stored timetable of a classroom.
func (c *Client) ClassroomTimetable(ctx context.Context, token string, classroomID int64) (*Timetable, error) {
	var out Timetable
	path := fmt.Sprintf("/classrooms/%d/timetable", classroomID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTimetable stores a classroom timetable.
func (c *Client) SubmitTimetable(ctx context.Context, token string, submission TimetableSubmission) error {
	return c.do(ctx, http.MethodPost, "/timetables", token, nil, submission, nil)
}

// List fetches one page of a list endpoint.
func (c *Client) List(ctx context.Context, token, path string, opts ListOptions) (*ListPage, error) {
	var out ListPage
	if err := c.do(ctx, http.MethodGet, "/"+strings.TrimLeft(path, "/"), token, opts.Query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query encodes the options as URL parameters.
func (o ListOptions) Query() url.Values {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if len(o.Sort) > 0 {
		q.Set("sort", strings.Join(o.Sort, ","))
	}
	for key, value := range o.Filters {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}
