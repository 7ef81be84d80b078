package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// pour is a filling-bar animation shown next to items while their bottles
// are being poured.
// Frames are one cell wide so the icon column stays aligned with the
// status glyphs.
var pour = spinner.Spinner{
	Frames: []string{"▁", "▃", "▅", "▇", "█", "▇", "▅", "▃"},
	FPS:    time.Second / 8,
}

// NewSpinner returns a spinner.Model running the pour animation in the
// accent color.
func NewSpinner(styles Styles) spinner.Model {
	return spinner.New(
		spinner.WithSpinner(pour),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.AccentColor)),
	)
}
