package timetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/timetable"
)

func TestPaletteVariesByTheme(t *testing.T) {
	p := testPalette(t)
	assert.Equal(t, "#1E88E5", p.Color("Mathematics", settings.ThemeLight))
	assert.Equal(t, "#0D47A1", p.Color("Mathematics", settings.ThemeDark))
}

func TestPaletteMatchesFoldedNames(t *testing.T) {
	p := testPalette(t)
	assert.Equal(t, p.Color("physical education", settings.ThemeLight), p.Color("  PHYSICAL   Education ", settings.ThemeLight))
}

func TestPaletteFallsBackForUnknownSubjects(t *testing.T) {
	p := testPalette(t)
	assert.Equal(t, "#90A4AE", p.Color("Pottery", settings.ThemeLight))
	assert.Equal(t, "#546E7A", p.Color("Pottery", settings.ThemeDark))
}

func TestParsePaletteFillsMissingModes(t *testing.T) {
	p, err := timetable.ParsePalette([]byte(`
fallback: {light: "#fff", dark: "#000"}
subjects:
  Choir: {light: "#abc"}
`))
	require.NoError(t, err)
	assert.Equal(t, "#abc", p.Color("choir", settings.ThemeLight))
	assert.Equal(t, "#000", p.Color("choir", settings.ThemeDark))

	_, err = timetable.ParsePalette([]byte(`subjects: {}`))
	assert.Error(t, err)
}
