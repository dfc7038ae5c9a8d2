package panels

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"photo-editor/internal/layer"
	"photo-editor/internal/project"
)

// LayersPanel lists the project's layers front to back and edits the
// selected one.
type LayersPanel struct {
	proj      *project.Project
	win       fyne.Window
	container fyne.CanvasObject

	snap    project.Snapshot
	list    *widget.List
	visible *widget.Check
	opacity *widget.Slider
	name    *widget.Label

	// syncing suppresses widget callbacks while the panel is being refreshed.
	syncing bool
}

// NewLayersPanel creates a new layers panel.
func NewLayersPanel(proj *project.Project, win fyne.Window) *LayersPanel {
	lp := &LayersPanel{proj: proj, win: win, snap: proj.Snapshot()}

	lp.list = widget.NewList(
		func() int { return len(lp.snap.Layers) },
		func() fyne.CanvasObject { return widget.NewLabel("layer") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			r := lp.row(i)
			text := r.Name
			if !r.Visible {
				text += " (hidden)"
			}
			o.(*widget.Label).SetText(text)
		},
	)
	lp.list.OnSelected = func(i widget.ListItemID) {
		if lp.syncing {
			return
		}
		proj.Select(lp.row(i).ID)
	}

	lp.name = widget.NewLabel("No layer selected")
	lp.visible = widget.NewCheck("Visible", func(checked bool) {
		lp.withTarget(func(id layer.ID) (project.Snapshot, error) {
			if checked {
				return proj.ShowLayer(id)
			}
			return proj.HideLayer(id)
		})
	})
	lp.opacity = widget.NewSlider(0, 100)
	lp.opacity.OnChangeEnded = func(val float64) {
		lp.withTarget(func(id layer.ID) (project.Snapshot, error) {
			return proj.SetOpacity(id, val/100.0)
		})
	}

	buttons := container.NewGridWithColumns(3,
		widget.NewButton("Up", func() { lp.withTarget(proj.MoveLayerUp) }),
		widget.NewButton("Down", func() { lp.withTarget(proj.MoveLayerDown) }),
		widget.NewButton("Front", func() { lp.withTarget(proj.MoveLayerFront) }),
		widget.NewButton("Back", func() { lp.withTarget(proj.MoveLayerBack) }),
		widget.NewButton("Reset", func() { lp.withTarget(proj.ResetLayer) }),
		widget.NewButton("Rename", lp.onRename),
		widget.NewButton("Duplicate", lp.onDuplicate),
		widget.NewButton("Delete", func() { lp.withTarget(proj.RemoveLayer) }),
	)

	lp.container = container.NewBorder(
		nil,
		widget.NewCard("Selected Layer", "", container.NewVBox(
			lp.name,
			lp.visible,
			widget.NewLabel("Opacity:"),
			lp.opacity,
			buttons,
		)),
		nil,
		nil,
		lp.list,
	)

	proj.On(project.EventChanged, lp.onSnapshot)
	proj.On(project.EventSelectionChanged, lp.onSnapshot)
	lp.Update(lp.snap)
	return lp
}

// Container returns the panel container.
func (lp *LayersPanel) Container() fyne.CanvasObject {
	return lp.container
}

func (lp *LayersPanel) onSnapshot(data any) {
	if snap, ok := data.(project.Snapshot); ok {
		lp.Update(snap)
	}
}

// Update shows snap.
func (lp *LayersPanel) Update(snap project.Snapshot) {
	lp.syncing = true
	defer func() { lp.syncing = false }()

	lp.snap = snap
	lp.list.Refresh()
	if snap.Target == nil {
		lp.list.UnselectAll()
		lp.name.SetText("No layer selected")
		return
	}
	for i := range snap.Layers {
		if lp.row(i).ID == *snap.Target {
			lp.list.Select(i)
		}
	}
	r, _ := snap.Find(*snap.Target)
	lp.name.SetText(fmt.Sprintf("%s (%s)", r.Name, r.Kind))
	lp.visible.SetChecked(r.Visible)
	lp.opacity.SetValue(r.Opacity * 100)
}

// row maps a list row to a record; the list shows the front layer first.
func (lp *LayersPanel) row(i int) layer.Record {
	return lp.snap.Layers[len(lp.snap.Layers)-1-i]
}

// withTarget runs op on the selected layer and reports failures.
func (lp *LayersPanel) withTarget(op func(layer.ID) (project.Snapshot, error)) {
	if lp.syncing || lp.snap.Target == nil {
		return
	}
	if _, err := op(*lp.snap.Target); err != nil {
		dialog.ShowError(err, lp.win)
	}
}

func (lp *LayersPanel) onRename() {
	if lp.snap.Target == nil {
		return
	}
	id := *lp.snap.Target
	r, _ := lp.snap.Find(id)
	entry := widget.NewEntry()
	entry.SetText(r.Name)
	dialog.ShowForm("Rename Layer", "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			if _, err := lp.proj.RenameLayer(id, entry.Text); err != nil {
				dialog.ShowError(err, lp.win)
			}
		}, lp.win)
}

func (lp *LayersPanel) onDuplicate() {
	if lp.snap.Target == nil {
		return
	}
	id := *lp.snap.Target
	go func() {
		if _, err := lp.proj.DuplicateLayer(context.Background(), id); err != nil {
			dialog.ShowError(err, lp.win)
		}
	}()
}
