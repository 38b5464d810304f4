package timetable

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/schooldesk/schooldesk/internal/platform/httpx"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
)

// Credentials resolves client credentials and expires clients the backend
// no longer accepts.
type Credentials interface {
	Token(ctx context.Context, clientID string) (string, error)
	Expire(ctx context.Context, clientID, location string) (session.Result, error)
}

// Handler wires HTTP endpoints for timetable editing.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	provider    storage.Provider
	credentials Credentials
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, provider storage.Provider, credentials Credentials) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		provider:    provider,
		credentials: credentials,
		validator:   httpx.NewValidator(),
	}
}

// MountRoutes registers timetable routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{classroomID}/editor", h.handleOpen)
	r.Route("/editors/{editorID}", func(r chi.Router) {
		r.Get("/", h.handleView)
		r.Post("/cells", h.handlePlace)
		r.Delete("/cells", h.handleClear)
		r.Patch("/cells/{cellID}", h.handleMove)
		r.Delete("/cells/{cellID}", h.handleRemove)
		r.Post("/submit", h.handleSubmit)
	})
}

type placeRequest struct {
	SubjectID int64 `json:"subject_id" validate:"required,gt=0"`
	Day       *int  `json:"day" validate:"required,gte=0,lt=7"`
	Slot      *int  `json:"slot" validate:"required,gte=0"`
}

type moveRequest struct {
	Day  *int `json:"day" validate:"required,gte=0,lt=7"`
	Slot *int `json:"slot" validate:"required,gte=0"`
}

type submitRequest struct {
	NextWeek *bool `json:"next_week"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	classroomID, err := strconv.ParseInt(chi.URLParam(r, "classroomID"), 10, 64)
	if err != nil || classroomID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Classroom", "classroom id must be a positive integer")
		return
	}
	clientID := shared.ClientFromContext(r.Context())
	token, ok := h.token(w, r, clientID)
	if !ok {
		return
	}
	editor, err := h.service.Open(r.Context(), clientID, token, h.provider.Client(clientID), classroomID)
	if err != nil {
		h.fail(w, r, clientID, "open timetable editor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, editor.Snapshot())
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, editor.Snapshot())
}

func (h *Handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	var req placeRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	snap, err := editor.Place(req.SubjectID, *req.Day, *req.Slot)
	h.respond(w, snap, err)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	cellID, ok := cellParam(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	snap, err := editor.Move(cellID, *req.Day, *req.Slot)
	h.respond(w, snap, err)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	cellID, ok := cellParam(w, r)
	if !ok {
		return
	}
	snap, err := editor.Remove(cellID)
	h.respond(w, snap, err)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	snap, err := editor.ClearAll()
	h.respond(w, snap, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.editor(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if r.ContentLength != 0 && !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	clientID := shared.ClientFromContext(r.Context())
	token, ok := h.token(w, r, clientID)
	if !ok {
		return
	}
	snap, err := h.service.Submit(r.Context(), editor, token, req.NextWeek)
	if err != nil {
		h.fail(w, r, clientID, "submit timetable", err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) editor(w http.ResponseWriter, r *http.Request) (*Editor, bool) {
	clientID := shared.ClientFromContext(r.Context())
	editor, err := h.service.Registry().Get(clientID, chi.URLParam(r, "editorID"))
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	return editor, true
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request, clientID string) (string, bool) {
	token, err := h.credentials.Token(r.Context(), clientID)
	if err != nil {
		h.fail(w, r, clientID, "timetable credentials", err)
		return "", false
	}
	return token, true
}

// fail logs err once and answers it. A rejected credential also expires
// the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, clientID, msg string, err error) {
	if errors.Is(err, shared.ErrUnauthorized) {
		res, expireErr := h.credentials.Expire(r.Context(), clientID, session.RequestLocation(r))
		if expireErr != nil {
			h.logger.Error("expire client", slog.Any("error", expireErr))
		}
		session.RespondFailure(w, res, err)
		return
	}
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) respond(w http.ResponseWriter, snap Snapshot, err error) {
	if err != nil {
		h.logger.Debug("timetable edit rejected", slog.String("editor", snap.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func cellParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "cellID"))
	if err != nil || id < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Cell", "cell id must be a non-negative integer")
		return 0, false
	}
	return id, true
}
