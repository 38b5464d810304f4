package settings_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/storage"
)

type stubSource struct {
	calls   atomic.Int32
	release chan struct{}
	value   backend.Settings
	err     error
}

func (s *stubSource) Settings(ctx context.Context, token string) (*backend.Settings, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	v := s.value
	return &v, nil
}

func TestFetchNormalizesAndSaveCaches(t *testing.T) {
	src := &stubSource{value: backend.Settings{ThemeMode: "DARK", TimetableNextWeek: true, DayStart: "bogus"}}
	svc := settings.NewService(src, nil)
	store := storage.NewMemoryProvider().Client("c")

	got, err := svc.Fetch(context.Background(), "tok")
	require.NoError(t, err)
	require.NoError(t, svc.Save(context.Background(), store, got))
	assert.Equal(t, settings.ThemeDark, got.Theme)
	assert.True(t, got.TimetableNextWeek)
	assert.Equal(t, 45, got.LessonMinutes)
	assert.Equal(t, "08:00", got.DayStart)

	cached, err := svc.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, *got, cached)
	assert.Equal(t, 45*time.Minute, cached.LessonLength())
	assert.Equal(t, 8*time.Hour, cached.DayStartOffset())
}

func TestLoadWithoutCacheReturnsDefaults(t *testing.T) {
	svc := settings.NewService(&stubSource{}, nil)
	got, err := svc.Load(context.Background(), storage.NewMemoryProvider().Client("c"))
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), got)
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	src := &stubSource{release: make(chan struct{}), value: backend.Settings{ThemeMode: "light"}}
	svc := settings.NewService(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Fetch(context.Background(), "tok")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestFetchError(t *testing.T) {
	boom := errors.New("boom")
	svc := settings.NewService(&stubSource{err: boom}, nil)
	_, err := svc.Fetch(context.Background(), "tok")
	assert.ErrorIs(t, err, boom)
}
