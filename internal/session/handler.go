package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/platform/httpx"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
)

// AppStoreResolver returns the app store a module keeps for a client.
type AppStoreResolver interface {
	AppStore(clientID string) AppStore
}

// AppStoreFunc adapts a function to AppStoreResolver.
type AppStoreFunc func(clientID string) AppStore

// AppStore calls f.
func (f AppStoreFunc) AppStore(clientID string) AppStore { return f(clientID) }

type appStores []AppStore

func (s appStores) Reset(ctx context.Context) error {
	var errs []error
	for _, store := range s {
		errs = append(errs, store.Reset(ctx))
	}
	return errors.Join(errs...)
}

// Gate binds the session service to client storage so other handlers can
// read the credential or expire a client.
type Gate struct {
	service   *Service
	provider  storage.Provider
	resolvers []AppStoreResolver
}

// NewGate constructs a Gate.
func NewGate(service *Service, provider storage.Provider, resolvers ...AppStoreResolver) *Gate {
	return &Gate{service: service, provider: provider, resolvers: resolvers}
}

// Manager returns a Manager for clientID.
func (g *Gate) Manager(clientID string) *Manager {
	apps := make(appStores, 0, len(g.resolvers))
	for _, r := range g.resolvers {
		apps = append(apps, r.AppStore(clientID))
	}
	return g.service.For(g.provider.Client(clientID), apps)
}

// Token returns the client's credential, or shared.ErrUnauthorized when it
// is missing or expired.
func (g *Gate) Token(ctx context.Context, clientID string) (string, error) {
	return g.service.Token(ctx, g.provider.Client(clientID))
}

// Expire clears the client after the backend rejected its credential. The
// result redirects to the login view with location as the return target.
func (g *Gate) Expire(ctx context.Context, clientID, location string) (Result, error) {
	res, err := g.Manager(clientID).Dispatch(ctx, RemoveData{Location: location})
	if err == nil {
		res.Notices = append(res.Notices, errorNotice(shared.ErrUnauthorized))
	}
	return res, err
}

// Sweep clears every client whose credential has expired and reports how
// many were cleared.
func (g *Gate) Sweep(ctx context.Context) (int, error) {
	cleared := 0
	err := g.provider.EachClient(ctx, func(clientID string) error {
		expired, err := g.service.Expired(ctx, g.provider.Client(clientID))
		if err != nil || !expired {
			return err
		}
		if _, err := g.Manager(clientID).Dispatch(ctx, RemoveData{}); err != nil {
			return err
		}
		cleared++
		return nil
	})
	return cleared, err
}

// Handler wires HTTP endpoints for the session.
type Handler struct {
	logger    *slog.Logger
	gate      *Gate
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, gate *Gate, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		gate:      gate,
		csrf:      csrf,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers session routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleInit)
	r.Post("/login", h.handleLogin)
	r.Post("/profile", h.handleProfile)
	r.Post("/logout", h.handleLogout)
}

type initResponse struct {
	Result
	CSRFToken string `json:"csrf_token"`
}

type loginRequest struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DeviceToken string `json:"device_token"`
	ReturnURL   string `json:"return_url"`
}

type profileRequest struct {
	SchoolID    *int64 `json:"school_id" validate:"omitempty,gt=0"`
	RegionID    *int64 `json:"region_id" validate:"omitempty,gt=0"`
	PeriodID    *int64 `json:"period_id" validate:"omitempty,gt=0"`
	DeviceToken string `json:"device_token"`
}

type logoutRequest struct {
	Location string `json:"location"`
}

func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	clientID := shared.ClientFromContext(r.Context())
	res, err := h.gate.Manager(clientID).Init(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.logger.Error("session init", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, initResponse{Result: res, CSRFToken: h.csrf.Token(clientID)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	m := h.gate.Manager(shared.ClientFromContext(r.Context()))
	res, err := m.Dispatch(r.Context(), Login{
		Credentials: backend.Credentials{
			Username:    req.Username,
			Password:    req.Password,
			DeviceToken: req.DeviceToken,
		},
		ReturnURL: req.ReturnURL,
	})
	h.respond(w, res, err)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	clientID := shared.ClientFromContext(r.Context())
	res, err := h.gate.Manager(clientID).Dispatch(r.Context(), ProfileSwitch{
		SchoolID:    req.SchoolID,
		RegionID:    req.RegionID,
		PeriodID:    req.PeriodID,
		DeviceToken: req.DeviceToken,
	})
	if errors.Is(err, shared.ErrUnauthorized) {
		h.expire(w, r, clientID, RequestLocation(r))
		return
	}
	h.respond(w, res, err)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength != 0 {
		if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
			return
		}
	}
	m := h.gate.Manager(shared.ClientFromContext(r.Context()))
	initial, err := m.Init(r.Context(), req.Location)
	if err != nil {
		h.respond(w, initial, err)
		return
	}
	res, err := m.Dispatch(r.Context(), Logout{Location: req.Location})
	if err == nil && res.Redirect == nil {
		res.Redirect = initial.Redirect
	}
	h.respond(w, res, err)
}

// expire clears a client whose credential the backend no longer accepts and
// answers with the resulting redirect.
func (h *Handler) expire(w http.ResponseWriter, r *http.Request, clientID, location string) {
	res, err := h.gate.Expire(r.Context(), clientID, location)
	if err != nil {
		h.logger.Error("expire client", slog.Any("error", err))
	}
	RespondFailure(w, res, shared.ErrUnauthorized)
}

func (h *Handler) respond(w http.ResponseWriter, res Result, err error) {
	if err != nil {
		RespondFailure(w, res, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Failure is a problem document extended with the state, redirect and
// notices of the failed action.
type Failure struct {
	httpx.ProblemDetail
	Result
}

// RespondFailure answers err together with the result the action produced.
func RespondFailure(w http.ResponseWriter, res Result, err error) {
	p := httpx.ProblemFor(err)
	httpx.ProblemJSON(w, p.Status, Failure{ProblemDetail: p, Result: res})
}

// RequestLocation is the dashboard location a request was made from: the
// location query parameter, else the path of a same-host Referer.
func RequestLocation(r *http.Request) string {
	if loc := r.URL.Query().Get("location"); loc != "" {
		return loc
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return ""
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
