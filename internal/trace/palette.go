package trace

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha accents used for traffic lines
var (
	Subtext0 = lipgloss.Color("#a6adc8")
	Blue     = lipgloss.Color("#89b4fa")
	Sky      = lipgloss.Color("#89dceb")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
)
