package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the TUI
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	// Heatmap ramp, low to high.
	HeatLow  lipgloss.Color
	HeatMid  lipgloss.Color
	HeatHigh lipgloss.Color
	// Vector arrows, weak to strong.
	FieldLow  lipgloss.Color
	FieldHigh lipgloss.Color
}

// Available themes
var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"), // Magenta
		Secondary: lipgloss.Color("#00ffff"), // Cyan
		Accent:    lipgloss.Color("#ffff00"), // Yellow
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666666"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ff8800"),
		Error:     lipgloss.Color("#ff0000"),
		HeatLow:   lipgloss.Color("#0a0a2a"),
		HeatMid:   lipgloss.Color("#6a0a6a"),
		HeatHigh:  lipgloss.Color("#ff3366"),
		FieldLow:  lipgloss.Color("#004466"),
		FieldHigh: lipgloss.Color("#00ffff"),
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"), // Green phosphor
		Secondary: lipgloss.Color("#00cc00"),
		Accent:    lipgloss.Color("#88ff88"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Success:   lipgloss.Color("#88ff88"),
		Warning:   lipgloss.Color("#ffff00"),
		Error:     lipgloss.Color("#ff0000"),
		HeatLow:   lipgloss.Color("#001100"),
		HeatMid:   lipgloss.Color("#005500"),
		HeatHigh:  lipgloss.Color("#00cc00"),
		FieldLow:  lipgloss.Color("#003300"),
		FieldHigh: lipgloss.Color("#88ff88"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff0000"),
		HeatLow:   lipgloss.Color("#000000"),
		HeatMid:   lipgloss.Color("#444444"),
		HeatHigh:  lipgloss.Color("#aaaaaa"),
		FieldLow:  lipgloss.Color("#333333"),
		FieldHigh: lipgloss.Color("#cccccc"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"), // Ocean blue
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
		HeatLow:   lipgloss.Color("#001a33"),
		HeatMid:   lipgloss.Color("#005580"),
		HeatHigh:  lipgloss.Color("#00ccff"),
		FieldLow:  lipgloss.Color("#1a3a5a"),
		FieldHigh: lipgloss.Color("#e0f0ff"),
	}

	ThemeSunset = Theme{
		Name:      "sunset",
		Primary:   lipgloss.Color("#ff6b6b"), // Coral
		Secondary: lipgloss.Color("#feca57"),
		Accent:    lipgloss.Color("#ff9ff3"),
		Text:      lipgloss.Color("#fff5f5"),
		Muted:     lipgloss.Color("#8b6b8c"),
		Success:   lipgloss.Color("#5fd068"),
		Warning:   lipgloss.Color("#ffc048"),
		Error:     lipgloss.Color("#ff4757"),
		HeatLow:   lipgloss.Color("#2d1b2e"),
		HeatMid:   lipgloss.Color("#8b3a4a"),
		HeatHigh:  lipgloss.Color("#feca57"),
		FieldLow:  lipgloss.Color("#5a3b5c"),
		FieldHigh: lipgloss.Color("#ff9ff3"),
	}

	// All available themes
	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// HeatColor maps t in [0, 1] onto the theme's heatmap ramp.
func (t Theme) HeatColor(v float64) lipgloss.Color {
	if v <= 0.5 {
		return Lerp(t.HeatLow, t.HeatMid, v*2)
	}
	return Lerp(t.HeatMid, t.HeatHigh, (v-0.5)*2)
}

func (t Theme) FieldColor(v float64) lipgloss.Color {
	return Lerp(t.FieldLow, t.FieldHigh, v)
}
