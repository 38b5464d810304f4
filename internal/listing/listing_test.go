package listing_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/listing"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
	_ "github.com/schooldesk/schooldesk/testing"
)

func TestParseResourceIsClosed(t *testing.T) {
	r, err := listing.ParseResource("school-transfers")
	require.NoError(t, err)
	assert.Equal(t, listing.SchoolTransfers, r)
	assert.Equal(t, "school-transfers", r.String())

	_, err = listing.ParseResource("invoices")
	assert.ErrorIs(t, err, listing.ErrUnknownResource)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestParseQueryDropsInvalidValues(t *testing.T) {
	q := url.Values{
		"page":       {"-2"},
		"search":     {"  "},
		"sort":       {"-created_at,name,DROP TABLE"},
		"start_date": {"2024-02-30"},
		"end_date":   {"2024-03-01"},
		"status":     {"pending"},
		"author":     {"ignored for transfers"},
	}
	p := listing.ParseQuery(listing.SchoolTransfers, q)
	assert.Equal(t, 0, p.Page)
	assert.Empty(t, p.Search)
	assert.Equal(t, []string{"-created_at", "name"}, p.Sort)
	assert.Equal(t, map[string]string{"end_date": "2024-03-01", "status": "pending"}, p.Filters)
}

func TestParseQueryYearsAndPages(t *testing.T) {
	p := listing.ParseQuery(listing.Books, url.Values{"page": {"3"}, "year": {"99"}, "search": {"go"}})
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, "go", p.Search)
	assert.Empty(t, p.Filters)

	p = listing.ParseQuery(listing.Books, url.Values{"year": {"2019"}})
	assert.Equal(t, map[string]string{"year": "2019"}, p.Filters)
}

func TestHugePagesAreTreatedAsAbsent(t *testing.T) {
	p := listing.ParseQuery(listing.Books, url.Values{"page": {"9223372036854775807"}})
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, url.Values{}, p.Query())

	opts := listing.Params{Page: math.MaxInt}.Options(10)
	assert.Equal(t, 0, opts.Offset)
	assert.Equal(t, "limit=10", opts.Query().Encode())
}

func TestParamsOptionsAndQuery(t *testing.T) {
	p := listing.Params{Page: 2, Search: "ana", Sort: []string{"-id"}, Filters: map[string]string{"role": "teacher"}}
	opts := p.Options(10)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 20, opts.Offset)
	assert.Equal(t, "limit=10&offset=20&role=teacher&search=ana&sort=-id", opts.Query().Encode())
	assert.Equal(t, "page=2&role=teacher&search=ana&sort=-id", p.Query().Encode())

	assert.Equal(t, url.Values{}, listing.Params{}.Query())
	assert.Equal(t, listing.Params{Page: 2, Search: "ana", Sort: []string{"-id"}, Filters: map[string]string{"role": "teacher"}},
		listing.ParseQuery(listing.Users, p.Query()))
}

func TestFilterStoreResetKeepsSessionEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	provider := storage.NewRedisProvider(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	store := listing.NewFilterStore(provider)
	ctx := context.Background()

	require.NoError(t, provider.Client("c1").Put(ctx, "token", storage.Value("tok")))
	require.NoError(t, store.Save(ctx, "c1", listing.Books, listing.Params{Page: 1}))
	require.NoError(t, store.Save(ctx, "c1", listing.Users, listing.Params{Search: "x"}))

	p, ok, err := store.Load(ctx, "c1", listing.Books)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, p.Page)

	require.NoError(t, store.ForClient("c1").Reset(ctx))
	_, ok, err = store.Load(ctx, "c1", listing.Books)
	require.NoError(t, err)
	assert.False(t, ok)
	keys, err := provider.Client("c1").Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"token"}, keys)
}

type stubBackend struct {
	paths []string
	opts  []backend.ListOptions
	err   error
}

func (s *stubBackend) List(ctx context.Context, token, path string, opts backend.ListOptions) (*backend.ListPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.paths = append(s.paths, path)
	s.opts = append(s.opts, opts)
	return &backend.ListPage{Count: 42, Results: []json.RawMessage{json.RawMessage(`{"id":1}`)}}, nil
}

type stubCredentials struct{ expired []string }

func (s *stubCredentials) Token(ctx context.Context, clientID string) (string, error) {
	return "tok", nil
}

func (s *stubCredentials) Expire(ctx context.Context, clientID, location string) (session.Result, error) {
	s.expired = append(s.expired, clientID)
	return session.Result{Redirect: &session.Redirect{Path: session.LoginPath, ReturnTo: location}}, nil
}

func get(t *testing.T, r chi.Router, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(shared.ContextWithClient(req.Context(), "c1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerProxiesAndRestoresListState(t *testing.T) {
	api := &stubBackend{}
	router := chi.NewRouter()
	filters := listing.NewFilterStore(storage.NewMemoryProvider())
	router.Route("/api/lists", listing.NewHandler(nil, api, filters, &stubCredentials{}, 10).MountRoutes)

	rec := get(t, router, "/api/lists/books?page=1&author=Orwell")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Query      string            `json:"query"`
		Pagination shared.Pagination `json:"pagination"`
		Results    []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "author=Orwell&page=1", body.Query)
	assert.Equal(t, shared.Pagination{Page: 1, PerPage: 10, Total: 42, TotalPages: 5}, body.Pagination)
	assert.Len(t, body.Results, 1)
	assert.Equal(t, "books", api.paths[0])
	assert.Equal(t, 10, api.opts[0].Offset)

	rec = get(t, router, "/api/lists/books")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.opts[0], api.opts[1])

	rec = get(t, router, "/api/lists/books?page=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, api.opts[2].Offset)
	assert.Empty(t, api.opts[2].Filters)
}

func TestHandlerRejectsUnknownResource(t *testing.T) {
	api := &stubBackend{}
	router := chi.NewRouter()
	router.Route("/api/lists", listing.NewHandler(nil, api, listing.NewFilterStore(storage.NewMemoryProvider()), &stubCredentials{}, 10).MountRoutes)

	rec := get(t, router, "/api/lists/invoices")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, api.paths)
}

func TestHandlerExpiresClientOnUpstream401(t *testing.T) {
	api := &stubBackend{err: &backend.APIError{Status: http.StatusUnauthorized}}
	creds := &stubCredentials{}
	router := chi.NewRouter()
	router.Route("/api/lists", listing.NewHandler(nil, api, listing.NewFilterStore(storage.NewMemoryProvider()), creds, 10).MountRoutes)

	rec := get(t, router, "/api/lists/users?page=3&location=%2Fusers%3Fpage%3D3")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Redirect *session.Redirect `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Redirect)
	assert.Equal(t, "/login", body.Redirect.Path)
	assert.Equal(t, "/users?page=3", body.Redirect.ReturnTo)
	assert.Equal(t, []string{"c1"}, creds.expired)
}
