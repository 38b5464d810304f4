package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
)

// Backend is the subset of the school backend used by the session manager.
type Backend interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error)
	UpdateProfile(ctx context.Context, token string, req backend.ProfileRequest) (*backend.AuthResponse, error)
	Permissions(ctx context.Context, token string) (*backend.Permissions, error)
	DeleteSession(ctx context.Context, token, sessionID string) error
}

// SettingsSource refreshes dashboard settings after login.
type SettingsSource interface {
	Fetch(ctx context.Context, token string) (*settings.Settings, error)
	Save(ctx context.Context, store storage.Store, value *settings.Settings) error
}

// AppStore is client state owned by other modules that must be reset
// together with the session.
type AppStore interface {
	Reset(ctx context.Context) error
}

// Observer records action outcomes.
type Observer interface {
	ObserveSessionAction(action, outcome string)
}

// Config tunes session policies.
type Config struct {
	// RestrictedRoles are sent to RestrictedRedirect instead of the dashboard.
	RestrictedRoles    []string
	RestrictedRedirect string
	// DefaultTokenTTL applies when neither the response nor the token carry an expiry.
	DefaultTokenTTL time.Duration
	// RedirectOnExpiry sends clients with expired credentials to the login view.
	RedirectOnExpiry bool
}

// Service holds the long-lived dependencies; Manager instances are bound to
// one client.
type Service struct {
	cfg        Config
	restricted map[string]struct{}
	backend    Backend
	settings   SettingsSource
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a Service. source and observer may be nil.
func NewService(cfg Config, api Backend, source SettingsSource, observer Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTokenTTL <= 0 {
		cfg.DefaultTokenTTL = 24 * time.Hour
	}
	restricted := make(map[string]struct{}, len(cfg.RestrictedRoles))
	for _, role := range cfg.RestrictedRoles {
		restricted[role] = struct{}{}
	}
	return &Service{
		cfg:        cfg,
		restricted: restricted,
		backend:    api,
		settings:   source,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Token returns the stored credential while it is unexpired.
func (s *Service) Token(ctx context.Context, store storage.Store) (string, error) {
	entries, err := store.GetMany(ctx, KeyToken, KeyTokenExpiry)
	if err != nil {
		return "", fmt.Errorf("session: token: %w", err)
	}
	if !s.valid(entries) {
		return "", shared.ErrUnauthorized
	}
	return entries[KeyToken].String(), nil
}

// Expired reports whether store holds a credential that is no longer valid.
// Stores without a credential are not expired.
func (s *Service) Expired(ctx context.Context, store storage.Store) (bool, error) {
	entries, err := store.GetMany(ctx, KeyToken, KeyTokenExpiry)
	if err != nil {
		return false, err
	}
	if entries[KeyToken].State() == storage.Absent && entries[KeyTokenExpiry].State() == storage.Absent {
		return false, nil
	}
	return !s.valid(entries), nil
}

func (s *Service) valid(entries map[string]storage.Entry) bool {
	expiry, err := strconv.ParseInt(entries[KeyTokenExpiry].String(), 10, 64)
	return entries[KeyToken].Populated() && err == nil && expiry > s.now().Unix()
}

// For binds a Manager to a client's store and app store.
func (s *Service) For(store storage.Store, app AppStore) *Manager {
	return &Manager{svc: s, store: store, app: app, state: State{Loading: true}}
}

// Manager owns the session state of one client.
type Manager struct {
	svc   *Service
	store storage.Store
	app   AppStore
	state State
}

// State returns the current in-memory state.
func (m *Manager) State() State {
	return m.state
}

// Init rehydrates the session from storage, or clears it when the stored
// credential is missing or expired. location is the view being requested.
func (m *Manager) Init(ctx context.Context, location string) (Result, error) {
	entries, err := m.store.GetMany(ctx, Keys...)
	if err != nil {
		m.state.Loading = false
		return Result{State: m.state}, fmt.Errorf("session: init: %w", err)
	}

	if m.svc.valid(entries) {
		m.state = m.rehydrate(entries)
		return Result{State: m.state}, nil
	}

	if err := m.clear(ctx); err != nil {
		return Result{State: m.state}, err
	}
	res := Result{State: m.state}
	if m.svc.cfg.RedirectOnExpiry && !IsAuthView(location) {
		res.Redirect = loginRedirect(location)
	}
	return res, nil
}

func (m *Manager) rehydrate(entries map[string]storage.Entry) State {
	state := State{ActiveRole: entries[KeyRole].String()}
	decode := func(key string, target any) bool {
		ok, err := entries[key].DecodeJSON(target)
		if err != nil {
			m.svc.logger.Warn("session entry corrupt", slog.String("key", key), slog.Any("error", err))
			return false
		}
		return ok
	}
	var user User
	if decode(KeyUser, &user) {
		state.User = &user
	}
	var school backend.School
	if decode(KeySchool, &school) {
		state.ActiveSchool = &school
	}
	var region backend.Region
	if decode(KeyRegion, &region) {
		state.ActiveRegion = &region
	}
	var period backend.Period
	if decode(KeyPeriod, &period) {
		state.ActivePeriod = &period
	}
	if state.ActiveSchool != nil {
		if v, err := strconv.ParseBool(entries[KeySecondarySchool].String()); err == nil {
			state.IsSecondarySchool = &v
		} else {
			state.IsSecondarySchool = secondaryOf(state.ActiveSchool)
		}
	}
	return state
}

// Dispatch applies action to the session.
func (m *Manager) Dispatch(ctx context.Context, action Action) (Result, error) {
	var (
		res Result
		err error
	)
	switch a := action.(type) {
	case Login:
		res, err = m.login(ctx, a)
	case ProfileSwitch:
		res, err = m.profileSwitch(ctx, a)
	case Logout:
		res, err = m.logout(ctx, a)
	case RemoveData:
		res, err = m.removeData(ctx, a)
	default:
		return Result{State: m.state}, fmt.Errorf("session: unsupported action %T", action)
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.svc.logger.Warn("session action failed", slog.String("action", action.actionName()), slog.Any("error", err))
	}
	if m.svc.observer != nil {
		m.svc.observer.ObserveSessionAction(action.actionName(), outcome)
	}
	return res, err
}

func (m *Manager) login(ctx context.Context, a Login) (Result, error) {
	m.state.Loading = false
	resp, err := m.svc.backend.Login(ctx, a.Credentials)
	if err != nil {
		return m.failed(err), err
	}

	var (
		perms   *backend.Permissions
		fetched *settings.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	if m.svc.settings != nil {
		g.Go(func() error {
			value, err := m.svc.settings.Fetch(gctx, resp.Token)
			if err != nil {
				m.svc.logger.Warn("settings refresh after login", slog.Any("error", err))
				return nil
			}
			fetched = value
			return nil
		})
	}
	g.Go(func() error {
		value, err := m.svc.backend.Permissions(gctx, resp.Token)
		if err != nil {
			return err
		}
		perms = value
		return nil
	})
	if err := g.Wait(); err != nil {
		res := m.failed(err)
		if logoutErr := m.discard(ctx, resp); logoutErr != nil {
			m.svc.logger.Warn("logout after permission failure", slog.Any("error", logoutErr))
		}
		res.State = m.state
		res.Redirect = loginRedirect("")
		return res, err
	}

	if _, ok := m.svc.restricted[resp.CurrentRole]; ok {
		return Result{State: m.state, Redirect: &Redirect{Path: m.svc.cfg.RestrictedRedirect}}, nil
	}

	user := resp.User
	user.Permissions = *perms
	state := State{
		User:         &user,
		ActiveRole:   resp.CurrentRole,
		ActiveSchool: resp.CurrentSchoolModel,
		ActiveRegion: resp.CurrentRegionModel,
		ActivePeriod: resp.CurrentPeriodModel,
	}
	state.IsSecondarySchool = secondaryOf(state.ActiveSchool)

	entries, err := m.credentialEntries(resp)
	if err != nil {
		return m.failed(err), err
	}
	if err := putScope(entries, state); err != nil {
		return m.failed(err), err
	}
	if entries[KeyUser], err = storage.JSONValue(state.User); err != nil {
		return m.failed(err), err
	}
	entries[KeyRole] = storage.Value(state.ActiveRole)
	if err := m.store.PutMany(ctx, entries); err != nil {
		return m.failed(err), err
	}
	if fetched != nil {
		if err := m.svc.settings.Save(ctx, m.store, fetched); err != nil {
			m.svc.logger.Warn("save settings after login", slog.Any("error", err))
		}
	}
	m.state = state

	target := HomeRoute(state.ActiveRole)
	if a.ReturnURL != "" && a.ReturnURL != "/" && isLocalPath(a.ReturnURL) && !IsAuthView(a.ReturnURL) {
		target = a.ReturnURL
	}
	return Result{State: m.state, Redirect: &Redirect{Path: target}}, nil
}

// discard closes the freshly issued backend session and clears the client.
func (m *Manager) discard(ctx context.Context, resp *backend.AuthResponse) error {
	var err error
	if resp.SessionID != "" {
		err = m.svc.backend.DeleteSession(ctx, resp.Token, resp.SessionID)
	}
	return errors.Join(err, m.clear(ctx))
}

func (m *Manager) profileSwitch(ctx context.Context, a ProfileSwitch) (Result, error) {
	if m.state.Loading {
		if _, err := m.Init(ctx, ""); err != nil {
			return m.failed(err), err
		}
	}
	token, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return m.failed(err), err
	}
	if !token.Populated() {
		err := fmt.Errorf("session: profile switch: %w", shared.ErrUnauthorized)
		return m.failed(err), err
	}

	resp, err := m.svc.backend.UpdateProfile(ctx, token.String(), backend.ProfileRequest{
		SchoolID:    a.SchoolID,
		RegionID:    a.RegionID,
		PeriodID:    a.PeriodID,
		DeviceToken: a.DeviceToken,
	})
	if err != nil {
		return m.failed(err), err
	}

	next := m.state
	next.Loading = false
	next.ActiveSchool = resp.CurrentSchoolModel
	next.ActiveRegion = resp.CurrentRegionModel
	next.ActivePeriod = resp.CurrentPeriodModel
	next.IsSecondarySchool = secondaryOf(next.ActiveSchool)
	if resp.CurrentRole != "" {
		next.ActiveRole = resp.CurrentRole
	}

	entries, err := m.credentialEntries(resp)
	if err != nil {
		return m.failed(err), err
	}
	if err := putScope(entries, next); err != nil {
		return m.failed(err), err
	}
	entries[KeyRole] = storage.Value(next.ActiveRole)
	if err := m.store.PutMany(ctx, entries); err != nil {
		return m.failed(err), err
	}
	m.state = next

	// The token is already replaced at this point; a failing permission
	// fetch leaves the client logged in with the previous permission sets.
	perms, err := m.svc.backend.Permissions(ctx, resp.Token)
	if err != nil {
		return m.failed(err), err
	}
	user := User{}
	if m.state.Authenticated() {
		user = *m.state.User
	}
	if resp.User.ID != 0 {
		user = resp.User
	}
	user.Permissions = *perms
	entry, err := storage.JSONValue(&user)
	if err != nil {
		return m.failed(err), err
	}
	if err := m.store.Put(ctx, KeyUser, entry); err != nil {
		return m.failed(err), err
	}
	m.state.User = &user

	return Result{State: m.state, Redirect: &Redirect{Path: HomeRoute(m.state.ActiveRole)}}, nil
}

func (m *Manager) logout(ctx context.Context, a Logout) (Result, error) {
	entries, err := m.store.GetMany(ctx, KeySessionID, KeyToken)
	if err != nil {
		return m.failed(err), err
	}
	sessionID := entries[KeySessionID]
	if !sessionID.Populated() {
		return Result{State: m.state}, nil
	}
	if err := m.svc.backend.DeleteSession(ctx, entries[KeyToken].String(), sessionID.String()); err != nil {
		return m.failed(err), err
	}
	if err := m.clear(ctx); err != nil {
		return m.failed(err), err
	}
	return Result{State: m.state, Redirect: loginRedirect(a.Location)}, nil
}

func (m *Manager) removeData(ctx context.Context, a RemoveData) (Result, error) {
	err := m.clear(ctx)
	res := Result{State: m.state, Redirect: loginRedirect(a.Location)}
	if err != nil {
		res.Notices = []Notice{errorNotice(err)}
	}
	return res, err
}

// clear drops the in-memory state, every session key and the app store.
func (m *Manager) clear(ctx context.Context) error {
	m.state = State{}
	keys := append(append([]string{}, Keys...), settings.Key)
	err := m.store.Delete(ctx, keys...)
	if m.app != nil {
		err = errors.Join(err, m.app.Reset(ctx))
	}
	if err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func (m *Manager) credentialEntries(resp *backend.AuthResponse) (map[string]storage.Entry, error) {
	if resp.Token == "" {
		return nil, errors.New("session: backend returned no token")
	}
	expiry := tokenExpiry(resp, m.svc.now(), m.svc.cfg.DefaultTokenTTL)
	return map[string]storage.Entry{
		KeyToken:       storage.Value(resp.Token),
		KeyTokenExpiry: storage.Value(strconv.FormatInt(expiry, 10)),
		KeySessionID:   storage.Value(resp.SessionID),
	}, nil
}

// putScope encodes the school, region and period selectors. A nil selector
// is stored as cleared.
func putScope(entries map[string]storage.Entry, state State) error {
	var err error
	if entries[KeySchool], err = storage.JSONValue(state.ActiveSchool); err != nil {
		return err
	}
	if entries[KeyRegion], err = storage.JSONValue(state.ActiveRegion); err != nil {
		return err
	}
	if entries[KeyPeriod], err = storage.JSONValue(state.ActivePeriod); err != nil {
		return err
	}
	if state.IsSecondarySchool == nil {
		entries[KeySecondarySchool] = storage.ClearedEntry()
	} else {
		entries[KeySecondarySchool] = storage.Value(strconv.FormatBool(*state.IsSecondarySchool))
	}
	return nil
}

// tokenExpiry resolves the expiry in unix seconds: the response field, then
// the token's exp claim, then now+fallback.
func tokenExpiry(resp *backend.AuthResponse, now time.Time, fallback time.Duration) int64 {
	if resp.ExpiresAt > 0 {
		return resp.ExpiresAt
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(resp.Token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Unix()
	}
	return now.Add(fallback).Unix()
}

func (m *Manager) failed(err error) Result {
	return Result{State: m.state, Notices: []Notice{errorNotice(err)}}
}

func errorNotice(err error) Notice {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return Notice{Level: "error", Message: apiErr.UserMessage()}
	}
	if errors.Is(err, shared.ErrUnauthorized) {
		return Notice{Level: "error", Message: "Your session has expired"}
	}
	return Notice{Level: "error", Message: "Request Failed"}
}
