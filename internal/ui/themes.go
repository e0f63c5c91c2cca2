package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme represents a color theme for the TUI
type Theme struct {
	Name string

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	Border   lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Selected lipgloss.AdaptiveColor
}

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Available themes
var (
	DefaultTheme = Theme{
		Name:      "default",
		Primary:   adaptive("#1E40AF", "#3B82F6"),
		Secondary: adaptive("#6B7280", "#9CA3AF"),
		Success:   adaptive("#059669", "#10B981"),
		Error:     adaptive("#DC2626", "#EF4444"),
		Info:      adaptive("#0891B2", "#06B6D4"),
		Border:    adaptive("#D1D5DB", "#374151"),
		Muted:     adaptive("#6B7280", "#9CA3AF"),
		Selected:  adaptive("#DBEAFE", "#1E3A8A"),
	}

	HighContrastTheme = Theme{
		Name:      "high-contrast",
		Primary:   adaptive("#000000", "#FFFFFF"),
		Secondary: adaptive("#666666", "#BBBBBB"),
		Success:   adaptive("#006600", "#00FF00"),
		Error:     adaptive("#CC0000", "#FF4444"),
		Info:      adaptive("#0066CC", "#4499FF"),
		Border:    adaptive("#000000", "#FFFFFF"),
		Muted:     adaptive("#666666", "#BBBBBB"),
		Selected:  adaptive("#CCCCCC", "#333333"),
	}
)

var currentTheme = DefaultTheme

// GetTheme returns the current active theme
func GetTheme() Theme {
	return currentTheme
}

// SetThemeByName sets the theme by name
func SetThemeByName(name string) bool {
	switch name {
	case "default":
		currentTheme = DefaultTheme
	case "high-contrast":
		currentTheme = HighContrastTheme
	default:
		return false
	}
	return true
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles contains the styled components used by the viewer
type Styles struct {
	Theme Theme

	Title lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
	Info  lipgloss.Style
	Box   lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
}

// GetStyles builds styles from the current theme
func GetStyles() *Styles {
	theme := GetTheme()

	return &Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(theme.Info),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(1, 2),

		ListItem: lipgloss.NewStyle().
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Background(theme.Selected).
			Foreground(theme.Primary).
			Padding(0, 2).
			Bold(true),
	}
}
