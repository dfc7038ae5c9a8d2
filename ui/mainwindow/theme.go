package mainwindow

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"photo-editor/internal/config"
	"photo-editor/pkg/colorutil"
)

// EditorTheme is the default fyne theme pinned to one variant, with the
// configured accent used for primary widgets and selection.
type EditorTheme struct {
	variant fyne.ThemeVariant
	accent  color.RGBA
}

var _ fyne.Theme = (*EditorTheme)(nil)

// NewEditorTheme builds the theme described by cfg. Invalid values fall
// back to the dark variant and the default accent.
func NewEditorTheme(cfg config.UIConfig) *EditorTheme {
	t := &EditorTheme{variant: theme.VariantDark}
	if cfg.Theme == "light" {
		t.variant = theme.VariantLight
	}
	accent, err := colorutil.ParseHex(cfg.Accent)
	if err != nil {
		accent = colorutil.MustParseHex(config.DefaultConfig().UI.Accent)
	}
	t.accent = accent
	return t
}

func (t *EditorTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return t.accent
	case theme.ColorNameSelection:
		return colorutil.ScaleAlpha(t.accent, 0.4)
	case theme.ColorNameBackground:
		if t.variant == theme.VariantDark {
			return color.NRGBA{R: 0x25, G: 0x25, B: 0x28, A: 0xFF}
		}
	}
	return theme.DefaultTheme().Color(name, t.variant)
}

func (t *EditorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *EditorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *EditorTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameScrollBar {
		return 12
	}
	return theme.DefaultTheme().Size(name)
}
