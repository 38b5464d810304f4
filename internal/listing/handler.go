package listing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/platform/httpx"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/shared"
)

// Backend fetches list pages.
type Backend interface {
	List(ctx context.Context, token, path string, opts backend.ListOptions) (*backend.ListPage, error)
}

// Credentials resolves client credentials and expires clients the backend
// no longer accepts.
type Credentials interface {
	Token(ctx context.Context, clientID string) (string, error)
	Expire(ctx context.Context, clientID, location string) (session.Result, error)
}

// Handler proxies list requests.
type Handler struct {
	logger      *slog.Logger
	api         Backend
	filters     *FilterStore
	credentials Credentials
	perPage     int
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, api Backend, filters *FilterStore, credentials Credentials, perPage int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api, filters: filters, credentials: credentials, perPage: perPage}
}

// MountRoutes registers list routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{resource}", h.handleList)
}

type listResponse struct {
	Resource   string            `json:"resource"`
	Params     Params            `json:"params"`
	Query      string            `json:"query"`
	Pagination shared.Pagination `json:"pagination"`
	Results    []json.RawMessage `json:"results"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	resource, err := ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx := r.Context()
	clientID := shared.ClientFromContext(ctx)

	query := r.URL.Query()
	params := ParseQuery(resource, query)
	if !HasState(resource, query) {
		if stored, ok, err := h.filters.Load(ctx, clientID, resource); err != nil {
			h.logger.Warn("load list state", slog.String("resource", resource.String()), slog.Any("error", err))
		} else if ok {
			params = stored
		}
	}

	token, err := h.credentials.Token(ctx, clientID)
	if err != nil {
		h.fail(w, r, clientID, err)
		return
	}
	page, err := h.api.List(ctx, token, resource.String(), params.Options(h.perPage))
	if err != nil {
		h.fail(w, r, clientID, err)
		return
	}
	if err := h.filters.Save(ctx, clientID, resource, params); err != nil {
		h.logger.Warn("save list state", slog.String("resource", resource.String()), slog.Any("error", err))
	}

	results := page.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Resource:   resource.String(),
		Params:     params,
		Query:      params.Query().Encode(),
		Pagination: params.Pagination(h.perPage, page.Count),
		Results:    results,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, clientID string, err error) {
	if errors.Is(err, shared.ErrUnauthorized) {
		res, expireErr := h.credentials.Expire(r.Context(), clientID, session.RequestLocation(r))
		if expireErr != nil {
			h.logger.Error("expire client", slog.Any("error", expireErr))
		}
		session.RespondFailure(w, res, err)
		return
	}
	h.logger.Warn("list request", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
