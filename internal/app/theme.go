package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Colors used by the trace canvas.
var (
	ColorFeature     = color.NRGBA{R: 0x60, G: 0x7D, B: 0x8B, A: 0xFF}
	ColorEditFeature = color.NRGBA{R: 0x1E, G: 0x88, B: 0xE5, A: 0xFF}
	ColorCommitted   = color.NRGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}
	ColorProvisional = color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	ColorIndicator   = color.NRGBA{R: 0xFF, G: 0x00, B: 0xFF, A: 0xFF}
)

// AutoTraceTheme provides a custom theme for the application.
type AutoTraceTheme struct{}

var _ fyne.Theme = (*AutoTraceTheme)(nil)

func (t *AutoTraceTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return ColorEditFeature
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0x80}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *AutoTraceTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *AutoTraceTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *AutoTraceTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
