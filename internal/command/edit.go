package command

import (
	"fmt"

	"photo-editor/internal/history"
	"photo-editor/internal/layer"
	"photo-editor/pkg/geometry"
)

// Edit replaces a layer's properties. It stores the full property state
// before and after the change, so undo and redo restore it exactly.
type Edit struct {
	doc           *Document
	title         string
	id            layer.ID
	before, after layer.Layer
}

var _ history.Command = (*Edit)(nil)

// NewEdit builds an edit of layer id. mutate is applied to a copy of the
// layer to compute the new state; the live layer changes only on Execute.
func NewEdit(doc *Document, id layer.ID, title string, mutate func(layer.Layer) error) (*Edit, error) {
	l, err := doc.lookup(id)
	if err != nil {
		return nil, err
	}
	after := l.Clone()
	if err := mutate(after); err != nil {
		return nil, err
	}
	return &Edit{doc: doc, title: title, id: id, before: l.Clone(), after: after}, nil
}

func (c *Edit) Title() string  { return c.title }
func (c *Edit) Execute() error { return c.apply(c.after) }
func (c *Edit) Undo() error    { return c.apply(c.before) }
func (c *Edit) Redo() error    { return c.apply(c.after) }

func (c *Edit) apply(state layer.Layer) error {
	l, err := c.doc.lookup(c.id)
	if err != nil {
		return err
	}
	if err := layer.Assign(l, state); err != nil {
		return err
	}
	return c.doc.Apply(l)
}

// Rename sets a layer's display name.
func Rename(doc *Document, id layer.ID, name string) (*Edit, error) {
	return NewEdit(doc, id, "Rename Layer", func(l layer.Layer) error {
		l.Common().Name = name
		return nil
	})
}

// SetVisible hides or shows a layer.
func SetVisible(doc *Document, id layer.ID, visible bool) (*Edit, error) {
	title := "Hide Layer"
	if visible {
		title = "Show Layer"
	}
	return NewEdit(doc, id, title, func(l layer.Layer) error {
		l.Common().Visible = visible
		return nil
	})
}

// SetOpacity changes a layer's opacity, clamped to [0,1].
func SetOpacity(doc *Document, id layer.ID, opacity float64) (*Edit, error) {
	return NewEdit(doc, id, "Change Opacity", func(l layer.Layer) error {
		l.Common().SetOpacity(opacity)
		return nil
	})
}

// Reset restores a layer's adjustable properties to their defaults.
func Reset(doc *Document, id layer.ID) (*Edit, error) {
	canvas := doc.Canvas
	return NewEdit(doc, id, "Reset Layer", func(l layer.Layer) error {
		layer.Reset(l, canvas)
		return nil
	})
}

// SetParams replaces an adjustment layer's parameters. The parameters must
// be of the layer's own kind.
func SetParams(doc *Document, id layer.ID, p layer.Params, clipToBelow bool) (*Edit, error) {
	return NewEdit(doc, id, "Adjust "+p.Title(), func(l layer.Layer) error {
		a, ok := l.(*layer.Adjustment)
		if !ok {
			return fmt.Errorf("%s layer has no adjustment parameters", l.Kind())
		}
		if a.Kind() != p.Kind() {
			return fmt.Errorf("%s parameters on %s layer", p.Kind(), a.Kind())
		}
		a.Params, a.ClipToBelow = p, clipToBelow
		return nil
	})
}

// SetEffects replaces an image layer's effects.
func SetEffects(doc *Document, id layer.ID, effects []layer.Effect) (*Edit, error) {
	return NewEdit(doc, id, "Edit Effects", func(l layer.Layer) error {
		img, ok := l.(*layer.Image)
		if !ok {
			return fmt.Errorf("%s layer has no effects", l.Kind())
		}
		img.Effects = make([]layer.Effect, len(effects))
		for i, e := range effects {
			img.Effects[i] = layer.Effect{Name: e.Name, Description: e.Description, Spec: e.Spec}
		}
		return nil
	})
}

// Transform places an image layer.
func Transform(doc *Document, id layer.ID, pos, scale geometry.Point2D, rotation float64) (*Edit, error) {
	return NewEdit(doc, id, "Transform Layer", func(l layer.Layer) error {
		img, ok := l.(*layer.Image)
		if !ok {
			return fmt.Errorf("%s layer cannot be transformed", l.Kind())
		}
		img.Position, img.Scale, img.Rotation = pos, scale, rotation
		return nil
	})
}

// SetText replaces a text layer's content and style.
func SetText(doc *Document, id layer.ID, props layer.TextProps) (*Edit, error) {
	return NewEdit(doc, id, "Edit Text", func(l layer.Layer) error {
		t, ok := l.(*layer.Text)
		if !ok {
			return fmt.Errorf("%s layer has no text", l.Kind())
		}
		t.TextProps = props
		return nil
	})
}

// SetBackground changes the background color and transparency.
func SetBackground(doc *Document, color string, transparent bool) (*Edit, error) {
	bg, ok := doc.Layers.Background()
	if !ok {
		return nil, fmt.Errorf("background: %w", layer.ErrNotFound)
	}
	return NewEdit(doc, bg.ID, "Change Background", func(l layer.Layer) error {
		b := l.(*layer.Background)
		b.Color, b.Transparent = color, transparent
		return nil
	})
}
