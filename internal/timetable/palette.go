package timetable

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/schooldesk/schooldesk/internal/settings"
)

//go:embed palette.yaml
var defaultPalette []byte

// Swatch is one color per display mode.
type Swatch struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

func (s Swatch) forTheme(theme settings.Theme) string {
	if theme == settings.ThemeDark {
		return s.Dark
	}
	return s.Light
}

// Palette maps subject names to colors.
type Palette struct {
	fallback Swatch
	subjects map[string]Swatch
}

type paletteFile struct {
	Fallback Swatch            `yaml:"fallback"`
	Subjects map[string]Swatch `yaml:"subjects"`
}

// DefaultPalette returns the embedded palette.
func DefaultPalette() (*Palette, error) {
	return ParsePalette(defaultPalette)
}

// ParsePalette decodes a YAML palette.
func ParsePalette(data []byte) (*Palette, error) {
	var file paletteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("timetable: parse palette: %w", err)
	}
	if file.Fallback.Light == "" || file.Fallback.Dark == "" {
		return nil, fmt.Errorf("timetable: palette fallback needs light and dark colors")
	}
	p := &Palette{fallback: file.Fallback, subjects: make(map[string]Swatch, len(file.Subjects))}
	for name, swatch := range file.Subjects {
		if swatch.Light == "" {
			swatch.Light = file.Fallback.Light
		}
		if swatch.Dark == "" {
			swatch.Dark = file.Fallback.Dark
		}
		p.subjects[foldName(name)] = swatch
	}
	return p, nil
}

// Color returns the color of subject in theme.
func (p *Palette) Color(subject string, theme settings.Theme) string {
	if swatch, ok := p.subjects[foldName(subject)]; ok {
		return swatch.forTheme(theme)
	}
	return p.fallback.forTheme(theme)
}

func foldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
