// Package themes maps TOML color definitions onto the lipgloss styles the
// client renders with.
package themes

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// Theme is a complete color theme.
type Theme struct {
	Meta   ThemeMeta   `toml:"meta"`
	Colors ThemeColors `toml:"colors"`
}

// ThemeMeta contains metadata about the theme.
type ThemeMeta struct {
	Name    string `toml:"name"`
	Variant string `toml:"variant"` // "dark" or "light"
}

// ThemeColors is the palette.
type ThemeColors struct {
	Foreground string `toml:"foreground"`
	Comment    string `toml:"comment"`
	Selection  string `toml:"selection"`
	Red        string `toml:"red"`
	Yellow     string `toml:"yellow"`
	Green      string `toml:"green"`
	Cyan       string `toml:"cyan"`
	Purple     string `toml:"purple"`
	Pink       string `toml:"pink"`
}

// Styles contains pre-computed lipgloss styles for the theme.
type Styles struct {
	ChannelName     lipgloss.Style
	ChannelSelected lipgloss.Style
	UnreadName      lipgloss.Style
	MentionBadge    lipgloss.Style

	Timestamp     lipgloss.Style
	UsernameSelf  lipgloss.Style
	UsernameOther lipgloss.Style
	Content       lipgloss.Style
	Pending       lipgloss.Style
	Edited        lipgloss.Style
	Reaction      lipgloss.Style
	ReactionMine  lipgloss.Style

	Error  lipgloss.Style
	Status lipgloss.Style
}

// LoadTheme loads a theme from a TOML file.
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}
	var theme Theme
	if err := toml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	return &theme, nil
}

// LoadThemeByName loads a theme by name from the themes directory.
func LoadThemeByName(themesDir, name string) (*Theme, error) {
	return LoadTheme(filepath.Join(themesDir, name+".toml"))
}

// BuildStyles creates lipgloss styles from a theme.
func (t *Theme) BuildStyles() *Styles {
	s := &Styles{}

	s.ChannelName = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment)).
		PaddingLeft(2)
	s.ChannelSelected = lipgloss.NewStyle().
		Background(lipgloss.Color(t.Colors.Selection)).
		Foreground(lipgloss.Color(t.Colors.Foreground)).
		PaddingLeft(2).
		Bold(true)
	s.UnreadName = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Foreground)).
		PaddingLeft(2).
		Bold(true)
	s.MentionBadge = lipgloss.NewStyle().
		Background(lipgloss.Color(t.Colors.Red)).
		Foreground(lipgloss.Color(t.Colors.Foreground)).
		Padding(0, 1).
		Bold(true)

	s.Timestamp = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment)).
		Faint(true)
	s.UsernameSelf = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Green)).
		Bold(true)
	s.UsernameOther = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Cyan)).
		Bold(true)
	s.Content = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Foreground))
	s.Pending = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment)).
		Italic(true)
	s.Edited = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment)).
		Faint(true)
	s.Reaction = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment))
	s.ReactionMine = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Purple)).
		Bold(true)

	s.Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Red)).
		Bold(true)
	s.Status = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Comment))

	return s
}
