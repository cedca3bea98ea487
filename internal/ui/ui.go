// Package ui provides terminal output styling for the CLI. Styled
// output is reserved for interactive terminals; pipes get plain text.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette. Single accent color keeps output readable.
const (
	ColorAccent = "39"  // answers and headers, bright blue
	ColorGray   = "245" // labels and secondary text
	ColorDim    = "238" // separators
	ColorRed    = "196" // errors
	ColorYellow = "220" // warnings and pending states
	ColorGreen  = "76"  // indexed/success states
)

// Styles holds the CLI render styles.
type Styles struct {
	Header  lipgloss.Style
	Answer  lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Answer:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Answer:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
	}
}

// GetStyles picks styles by color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// IsInteractive reports whether stdout is a terminal. NO_COLOR and
// dumb terminals read as non-interactive.
func IsInteractive() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StatusStyle maps a document status to its display style.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "indexed":
		return s.Success
	case "error":
		return s.Error
	case "queued", "processing":
		return s.Warning
	default:
		return s.Label
	}
}
