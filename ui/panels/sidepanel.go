// Package panels provides the editor's side panels.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"photo-editor/internal/project"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	container *container.AppTabs

	layersPanel *LayersPanel
	adjustPanel *AdjustPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(proj *project.Project, win fyne.Window) *SidePanel {
	sp := &SidePanel{
		layersPanel: NewLayersPanel(proj, win),
		adjustPanel: NewAdjustPanel(proj, win),
	}

	sp.container = container.NewAppTabs(
		container.NewTabItem("Layers", sp.layersPanel.Container()),
		container.NewTabItem("Adjust", sp.adjustPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}
