package layer

import (
	"fmt"
	"slices"

	"photo-editor/internal/imaging"
	"photo-editor/internal/render"
	"photo-editor/pkg/colorutil"
	"photo-editor/pkg/geometry"
)

// DefaultBackgroundColor is the color of a fresh project's background.
const DefaultBackgroundColor = "#ffffff"

// Background is the single, undeletable bottom layer of a project.
type Background struct {
	Base
	BackgroundProps
}

// BackgroundProps are the serializable background fields.
type BackgroundProps struct {
	Color       string `json:"color"`
	Transparent bool   `json:"transparent"`
}

// NewBackground creates the background layer.
func NewBackground() *Background {
	return &Background{
		Base:            newBase("Background"),
		BackgroundProps: BackgroundProps{Color: DefaultBackgroundColor},
	}
}

func (l *Background) Common() *Base     { return &l.Base }
func (l *Background) Kind() Kind        { return KindBackground }
func (l *Background) Node() render.Node { return nil }
func (l *Background) sealed()           {}

func (l *Background) SetNode(n render.Node) error {
	if n != nil {
		return fmt.Errorf("background layer has no render node")
	}
	return nil
}

func (l *Background) Clone() Layer {
	c := *l
	return &c
}

// Effect is a filter attached directly to an image layer.
type Effect struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Spec        render.FilterSpec `json:"spec"`
	Filter      render.Filter     `json:"-"`
}

// Image is a raster layer backed by a sprite in the renderer.
type Image struct {
	Base
	ImageProps
	Sprite render.Node `json:"-"`
}

// ImageProps are the serializable image-layer fields.
type ImageProps struct {
	Data     imaging.ImageData `json:"data"`
	Effects  []Effect          `json:"effects,omitempty"`
	Position geometry.Point2D  `json:"position"` // Canvas-space center
	Scale    geometry.Point2D  `json:"scale"`
	Rotation float64           `json:"rotation"` // Degrees, clockwise
}

// NewImage creates an image layer centered at pos with 1:1 scale.
func NewImage(data imaging.ImageData, pos geometry.Point2D) *Image {
	name := data.Name
	if name == "" {
		name = "Image"
	}
	return &Image{
		Base: newBase(name),
		ImageProps: ImageProps{
			Data:     data,
			Position: pos,
			Scale:    geometry.Point2D{X: 1, Y: 1},
		},
	}
}

func (l *Image) Common() *Base { return &l.Base }
func (l *Image) Kind() Kind    { return KindImage }
func (l *Image) sealed()       {}

func (l *Image) Node() render.Node {
	if l.Sprite == nil {
		return nil
	}
	return l.Sprite
}

func (l *Image) SetNode(n render.Node) error {
	l.Sprite = n
	return nil
}

func (l *Image) Clone() Layer {
	c := *l
	c.Sprite = nil
	c.Data = l.Data.Clone()
	c.Effects = cloneEffects(l.Effects)
	return &c
}

// Transform maps image pixel coordinates to canvas coordinates.
func (l *Image) Transform() geometry.AffineTransform {
	return geometry.Placement(l.Position, l.Scale, l.Rotation, float64(l.Data.Width), float64(l.Data.Height))
}

// Contains reports whether canvas point p falls on the image.
func (l *Image) Contains(p geometry.Point2D) bool {
	inv, ok := l.Transform().Inverse()
	if !ok {
		return false
	}
	local := inv.Apply(p)
	return geometry.NewRect(0, 0, float64(l.Data.Width), float64(l.Data.Height)).Contains(local)
}

func cloneEffects(effects []Effect) []Effect {
	if effects == nil {
		return nil
	}
	out := make([]Effect, len(effects))
	for i, e := range effects {
		out[i] = Effect{Name: e.Name, Description: e.Description, Spec: cloneSpec(e.Spec)}
	}
	return out
}

func cloneSpec(s render.FilterSpec) render.FilterSpec {
	c := s
	if s.Values != nil {
		c.Values = make(map[string]float64, len(s.Values))
		for k, v := range s.Values {
			c.Values[k] = v
		}
	}
	if s.Flags != nil {
		c.Flags = make(map[string]bool, len(s.Flags))
		for k, v := range s.Flags {
			c.Flags[k] = v
		}
	}
	return c
}

// Adjustment modifies the rendering of the layers below it.
type Adjustment struct {
	Base
	// ClipToBelow limits the effect to the layer immediately below.
	ClipToBelow bool
	Params      Params
	Container   render.Container `json:"-"`
}

// NewAdjustment creates an adjustment layer with the default parameters for kind.
func NewAdjustment(kind Kind) (*Adjustment, error) {
	p, err := DefaultParams(kind)
	if err != nil {
		return nil, err
	}
	return &Adjustment{Base: newBase(p.Title()), Params: p}, nil
}

func (l *Adjustment) Common() *Base { return &l.Base }
func (l *Adjustment) Kind() Kind    { return l.Params.Kind() }
func (l *Adjustment) sealed()       {}

func (l *Adjustment) Node() render.Node {
	if l.Container == nil {
		return nil
	}
	return l.Container
}

func (l *Adjustment) SetNode(n render.Node) error {
	if n == nil {
		l.Container = nil
		return nil
	}
	c, ok := n.(render.Container)
	if !ok {
		return fmt.Errorf("adjustment layer needs a container node, got %T", n)
	}
	l.Container = c
	return nil
}

func (l *Adjustment) Clone() Layer {
	c := *l
	c.Container = nil
	return &c
}

// ShapeKind selects the geometry of a shape layer.
type ShapeKind string

const (
	ShapeRect    ShapeKind = "rect"
	ShapeEllipse ShapeKind = "ellipse"
	ShapePolygon ShapeKind = "polygon"
)

// Text is a text layer.
type Text struct {
	Base
	TextProps
}

// TextProps are the serializable text-layer fields.
type TextProps struct {
	Text     string           `json:"text"`
	Font     string           `json:"font"`
	FontSize float64          `json:"fontSize"`
	Color    string           `json:"color"`
	Position geometry.Point2D `json:"position"`
}

// NewText creates a text layer.
func NewText(text string, pos geometry.Point2D) *Text {
	return &Text{
		Base: newBase("Text"),
		TextProps: TextProps{
			Text:     text,
			Font:     "sans-serif",
			FontSize: 24,
			Color:    colorutil.Hex(colorutil.Black),
			Position: pos,
		},
	}
}

func (l *Text) Common() *Base     { return &l.Base }
func (l *Text) Kind() Kind        { return KindText }
func (l *Text) Node() render.Node { return nil }
func (l *Text) sealed()           {}

func (l *Text) SetNode(n render.Node) error {
	if n != nil {
		return fmt.Errorf("text layer has no render node")
	}
	return nil
}

func (l *Text) Clone() Layer {
	c := *l
	return &c
}

// Shape is a vector shape layer.
type Shape struct {
	Base
	ShapeProps
}

// ShapeProps are the serializable shape-layer fields.
type ShapeProps struct {
	Shape       ShapeKind          `json:"shape"`
	Bounds      geometry.Rect      `json:"bounds"`
	Points      []geometry.Point2D `json:"points,omitempty"` // Polygon vertices
	Fill        string             `json:"fill"`
	Stroke      string             `json:"stroke"`
	StrokeWidth float64            `json:"strokeWidth"`
}

// NewShape creates a shape layer.
func NewShape(kind ShapeKind, bounds geometry.Rect) *Shape {
	return &Shape{
		Base: newBase(string(kind)),
		ShapeProps: ShapeProps{
			Shape:       kind,
			Bounds:      bounds,
			Fill:        colorutil.Hex(colorutil.Black),
			Stroke:      colorutil.Hex(colorutil.Black),
			StrokeWidth: 1,
		},
	}
}

func (l *Shape) Common() *Base     { return &l.Base }
func (l *Shape) Kind() Kind        { return KindShape }
func (l *Shape) Node() render.Node { return nil }
func (l *Shape) sealed()           {}

func (l *Shape) SetNode(n render.Node) error {
	if n != nil {
		return fmt.Errorf("shape layer has no render node")
	}
	return nil
}

func (l *Shape) Clone() Layer {
	c := *l
	c.Points = slices.Clone(l.Points)
	return &c
}

// Contains reports whether canvas point p falls inside the shape.
func (l *Shape) Contains(p geometry.Point2D) bool {
	switch l.Shape {
	case ShapePolygon:
		return geometry.PointInPolygon(p, l.Points)
	case ShapeEllipse:
		c := l.Bounds.Center()
		rx, ry := l.Bounds.Width/2, l.Bounds.Height/2
		if rx <= 0 || ry <= 0 {
			return false
		}
		dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
		return dx*dx+dy*dy <= 1
	default:
		return l.Bounds.Contains(p)
	}
}

// Reset restores a layer's adjustable properties to their defaults. Image
// layers are re-centered on canvas.
func Reset(l Layer, canvas geometry.Size) {
	b := l.Common()
	b.Opacity = 1
	switch v := l.(type) {
	case *Background:
		v.Color = DefaultBackgroundColor
		v.Transparent = false
	case *Image:
		v.Position = canvas.Center()
		v.Scale = geometry.Point2D{X: 1, Y: 1}
		v.Rotation = 0
		v.Effects = nil
	case *Adjustment:
		if p, err := DefaultParams(v.Kind()); err == nil {
			v.Params = p
		}
		v.ClipToBelow = false
	case *Text:
	case *Shape:
	default:
		panic(fmt.Sprintf("layer: unhandled variant %T", l))
	}
}

// Assign copies src's serializable state onto dst. The id, zIndex and
// render node of dst are kept. Both layers must be the same kind.
func Assign(dst, src Layer) error {
	if dst.Kind() != src.Kind() {
		return fmt.Errorf("assign %s to %s layer", src.Kind(), dst.Kind())
	}
	c := src.Clone()
	b := dst.Common()
	id, z := b.ID, b.ZIndex
	*b = *c.Common()
	b.ID, b.ZIndex = id, z

	switch d := dst.(type) {
	case *Background:
		d.BackgroundProps = c.(*Background).BackgroundProps
	case *Image:
		d.ImageProps = c.(*Image).ImageProps
	case *Adjustment:
		s := c.(*Adjustment)
		d.ClipToBelow, d.Params = s.ClipToBelow, s.Params
	case *Text:
		d.TextProps = c.(*Text).TextProps
	case *Shape:
		d.ShapeProps = c.(*Shape).ShapeProps
	default:
		panic(fmt.Sprintf("layer: unhandled variant %T", dst))
	}
	return nil
}
