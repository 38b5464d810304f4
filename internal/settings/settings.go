// Package settings caches the dashboard settings of each client.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/storage"
)

// Key is the storage key of the cached settings.
const Key = "settings"

// Theme is the display mode of the dashboard.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings are the values the dashboard needs between backend calls.
type Settings struct {
	Theme             Theme  `json:"theme_mode"`
	TimetableNextWeek bool   `json:"timetable_next_week"`
	LessonMinutes     int    `json:"lesson_minutes"`
	DayStart          string `json:"day_start"`
}

// Defaults returns the settings used before the first refresh.
func Defaults() Settings {
	return Settings{Theme: ThemeLight, LessonMinutes: 45, DayStart: "08:00"}
}

// LessonLength returns the length of one timetable slot.
func (s Settings) LessonLength() time.Duration {
	return time.Duration(s.LessonMinutes) * time.Minute
}

// DayStartOffset returns the first slot start as an offset from midnight.
func (s Settings) DayStartOffset() time.Duration {
	t, err := time.Parse("15:04", s.DayStart)
	if err != nil {
		return 8 * time.Hour
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

func fromBackend(in backend.Settings) Settings {
	out := Defaults()
	if strings.EqualFold(in.ThemeMode, string(ThemeDark)) {
		out.Theme = ThemeDark
	}
	out.TimetableNextWeek = in.TimetableNextWeek
	if in.LessonMinutes > 0 {
		out.LessonMinutes = in.LessonMinutes
	}
	if _, err := time.Parse("15:04", in.DayStart); err == nil {
		out.DayStart = in.DayStart
	}
	return out
}

// Source fetches settings from the backend.
type Source interface {
	Settings(ctx context.Context, token string) (*backend.Settings, error)
}

// Service fetches and caches settings.
type Service struct {
	source Source
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// Fetch loads settings from the backend. Concurrent fetches with the same
// token share one backend call.
func (s *Service) Fetch(ctx context.Context, token string) (*Settings, error) {
	v, err, shared := s.group.Do(token, func() (interface{}, error) {
		raw, err := s.source.Settings(ctx, token)
		if err != nil {
			return nil, err
		}
		out := fromBackend(*raw)
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("settings: fetch: %w", err)
	}
	if shared {
		s.logger.Debug("settings fetch shared")
	}
	copied := *v.(*Settings)
	return &copied, nil
}

// Save stores settings in the client store.
func (s *Service) Save(ctx context.Context, store storage.Store, value *Settings) error {
	entry, err := storage.JSONValue(value)
	if err != nil {
		return err
	}
	return store.Put(ctx, Key, entry)
}

// Load returns the cached settings, or the defaults when none are cached.
func (s *Service) Load(ctx context.Context, store storage.Store) (Settings, error) {
	entry, err := store.Get(ctx, Key)
	if err != nil {
		return Defaults(), err
	}
	out := Defaults()
	if _, err := entry.DecodeJSON(&out); err != nil {
		s.logger.Warn("settings cache corrupt", slog.Any("error", err))
		return Defaults(), nil
	}
	return out, nil
}
