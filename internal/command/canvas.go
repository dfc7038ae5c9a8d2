package command

import (
	"errors"
	"fmt"
	"slices"

	"photo-editor/internal/history"
	"photo-editor/internal/layer"
	"photo-editor/pkg/geometry"
)

// ErrInvalidSize is returned for canvas dimensions that are not positive.
var ErrInvalidSize = errors.New("canvas dimensions must be positive")

// ResizeCanvas changes the canvas dimensions. Positioned layers, shapes
// included, keep their place relative to the canvas center.
type ResizeCanvas struct {
	doc       *Document
	from, to  geometry.Size
	positions map[layer.ID]geometry.Point2D
	shapes    map[layer.ID]outline
}

// outline is a shape's geometry at execute time.
type outline struct {
	bounds geometry.Rect
	points []geometry.Point2D
}

var _ history.Command = (*ResizeCanvas)(nil)

// NewResizeCanvas resizes the canvas to size.
func NewResizeCanvas(doc *Document, size geometry.Size) (*ResizeCanvas, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%gx%g: %w", size.Width, size.Height, ErrInvalidSize)
	}
	return &ResizeCanvas{doc: doc, to: size}, nil
}

func (c *ResizeCanvas) Title() string { return "Resize Canvas" }

func (c *ResizeCanvas) Execute() error {
	c.from = c.doc.Canvas
	c.positions = make(map[layer.ID]geometry.Point2D)
	c.shapes = make(map[layer.ID]outline)
	for _, l := range c.doc.Layers.Layers() {
		switch v := l.(type) {
		case *layer.Image:
			c.positions[v.ID] = v.Position
		case *layer.Text:
			c.positions[v.ID] = v.Position
		case *layer.Shape:
			c.shapes[v.ID] = outline{bounds: v.Bounds, points: slices.Clone(v.Points)}
		}
	}
	return c.Redo()
}

func (c *ResizeCanvas) Undo() error {
	c.doc.Canvas = c.from
	return c.place(geometry.Point2D{})
}

func (c *ResizeCanvas) Redo() error {
	c.doc.Canvas = c.to
	return c.place(c.to.Center().Sub(c.from.Center()))
}

// place repositions every recorded layer still present at its execute-time
// geometry offset by d.
func (c *ResizeCanvas) place(d geometry.Point2D) error {
	for id, p := range c.positions {
		l, ok := c.doc.Layers.Find(id)
		if !ok {
			continue
		}
		switch v := l.(type) {
		case *layer.Image:
			v.Position = p.Add(d)
			if err := c.doc.Apply(v); err != nil {
				return err
			}
		case *layer.Text:
			v.Position = p.Add(d)
		}
	}
	for id, o := range c.shapes {
		l, ok := c.doc.Layers.Find(id)
		if !ok {
			continue
		}
		shp := l.(*layer.Shape)
		shp.Bounds = o.bounds
		shp.Bounds.X += d.X
		shp.Bounds.Y += d.Y
		shp.Points = nil
		for _, pt := range o.points {
			shp.Points = append(shp.Points, pt.Add(d))
		}
	}
	return nil
}
