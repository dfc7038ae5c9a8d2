package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"photo-editor/internal/layer"
	"photo-editor/internal/project"
)

// field is one numeric adjustment parameter.
type field struct {
	label  string
	lo, hi float64
	get    func(layer.Params) float64
	set    func(layer.Params, float64) layer.Params
}

// param builds a field for the value ptr selects in P.
func param[P layer.Params](label string, lo, hi float64, ptr func(*P) *float64) field {
	get := func(p layer.Params) float64 {
		v := p.(P)
		return *ptr(&v)
	}
	set := func(p layer.Params, x float64) layer.Params {
		v := p.(P)
		*ptr(&v) = x
		return v
	}
	return field{label: label, lo: lo, hi: hi, get: get, set: set}
}

var adjustmentFields = map[layer.Kind][]field{
	layer.KindBrightness: {
		param("Brightness", 0, 3, func(p *layer.BrightnessParams) *float64 { return &p.Brightness }),
		param("Contrast", 0, 3, func(p *layer.BrightnessParams) *float64 { return &p.Contrast }),
	},
	layer.KindSaturation: {
		param("Saturation", -1, 1, func(p *layer.SaturationParams) *float64 { return &p.Saturation }),
		param("Hue", -180, 180, func(p *layer.SaturationParams) *float64 { return &p.Hue }),
	},
	layer.KindBloom: {
		param("Blur", 0, 40, func(p *layer.BloomParams) *float64 { return &p.Blur }),
		param("Threshold", 0, 1, func(p *layer.BloomParams) *float64 { return &p.Threshold }),
		param("Brightness", 0, 3, func(p *layer.BloomParams) *float64 { return &p.Brightness }),
	},
	layer.KindDropShadow: {
		param("Blur", 0, 40, func(p *layer.DropShadowParams) *float64 { return &p.Blur }),
		param("Opacity", 0, 1, func(p *layer.DropShadowParams) *float64 { return &p.Opacity }),
		param("Offset X", -50, 50, func(p *layer.DropShadowParams) *float64 { return &p.OffsetX }),
		param("Offset Y", -50, 50, func(p *layer.DropShadowParams) *float64 { return &p.OffsetY }),
	},
}

// AdjustPanel edits the parameters of the selected adjustment layer.
type AdjustPanel struct {
	proj      *project.Project
	win       fyne.Window
	container *fyne.Container

	id     layer.ID
	params layer.Params
	clip   bool
}

// NewAdjustPanel creates a new adjustment panel.
func NewAdjustPanel(proj *project.Project, win fyne.Window) *AdjustPanel {
	ap := &AdjustPanel{proj: proj, win: win}

	add := widget.NewSelect(adjustmentNames(), func(name string) {
		kind, err := layer.ParseKind(name)
		if err != nil {
			return
		}
		if _, err := proj.NewAdjustmentLayer(kind); err != nil {
			dialog.ShowError(err, win)
		}
	})
	add.PlaceHolder = "Add adjustment..."

	ap.container = container.NewVBox(add, container.NewVBox())
	on := func(data any) {
		if snap, ok := data.(project.Snapshot); ok {
			ap.Update(snap)
		}
	}
	proj.On(project.EventChanged, on)
	proj.On(project.EventSelectionChanged, on)
	ap.Update(proj.Snapshot())
	return ap
}

// Container returns the panel container.
func (ap *AdjustPanel) Container() fyne.CanvasObject {
	return ap.container
}

func adjustmentNames() []string {
	var names []string
	for _, k := range []layer.Kind{layer.KindBrightness, layer.KindSaturation, layer.KindBloom, layer.KindDropShadow} {
		names = append(names, k.String())
	}
	return names
}

// Update rebuilds the parameter form for the selected layer in snap.
func (ap *AdjustPanel) Update(snap project.Snapshot) {
	form := ap.container.Objects[1].(*fyne.Container)
	form.RemoveAll()
	ap.params = nil
	if snap.Target == nil {
		return
	}
	r, _ := snap.Find(*snap.Target)
	if !r.Kind.IsAdjustment() || r.Adjustment == nil {
		return
	}
	l, err := layer.FromRecord(r)
	if err != nil {
		return
	}
	adj := l.(*layer.Adjustment)
	ap.id, ap.params, ap.clip = r.ID, adj.Params, adj.ClipToBelow

	form.Add(widget.NewLabel(adj.Params.Title()))
	clip := widget.NewCheck("Clip to layer below", nil)
	clip.SetChecked(ap.clip)
	clip.OnChanged = func(checked bool) {
		ap.clip = checked
		ap.commit()
	}
	form.Add(clip)

	for _, f := range adjustmentFields[r.Kind] {
		value := widget.NewLabel(fmt.Sprintf("%.2f", f.get(ap.params)))
		slider := widget.NewSlider(f.lo, f.hi)
		slider.Step = (f.hi - f.lo) / 200
		slider.SetValue(f.get(ap.params))
		slider.OnChanged = func(v float64) { value.SetText(fmt.Sprintf("%.2f", v)) }
		slider.OnChangeEnded = func(v float64) {
			ap.params = f.set(ap.params, v)
			ap.commit()
		}
		form.Add(container.NewBorder(nil, nil, widget.NewLabel(f.label), value, slider))
	}
}

func (ap *AdjustPanel) commit() {
	if ap.params == nil {
		return
	}
	if _, err := ap.proj.UpdateAdjustment(ap.id, ap.params, ap.clip); err != nil {
		dialog.ShowError(err, ap.win)
	}
}
