// Package composite flattens a layer stack into a single raster for export.
package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"photo-editor/internal/layer"
	"photo-editor/internal/render"
	"photo-editor/pkg/colorutil"
	"photo-editor/pkg/geometry"
)

// FilterFunc applies one filter to a raster.
type FilterFunc func(img image.Image, spec render.FilterSpec) (*image.RGBA, error)

// Composite renders layers bottom to top onto a canvas of fixed size.
type Composite struct {
	Width  int
	Height int
	// Filter applies adjustment and effect filters. When nil, filters are
	// skipped and adjustment layers have no effect.
	Filter FilterFunc
	Log    *zap.Logger
}

// NewComposite creates a composite with the specified dimensions.
func NewComposite(width, height int, filter FilterFunc, log *zap.Logger) *Composite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composite{Width: width, Height: height, Filter: filter, Log: log}
}

// Render produces the flattened image. Hidden layers are skipped. An
// adjustment with ClipToBelow filters only the pixel layer directly below
// it; otherwise it filters everything composited so far.
func (c *Composite) Render(layers []layer.Layer) (*image.RGBA, error) {
	bounds := image.Rect(0, 0, c.Width, c.Height)
	result := image.NewRGBA(bounds)

	// pending is the most recent pixel layer, kept apart from result until
	// the next layer so that clipped adjustments can reach it.
	var pending *image.RGBA
	var pendingOpacity float64
	flush := func() {
		if pending != nil {
			over(result, pending, pendingOpacity)
			pending = nil
		}
	}

	for _, l := range layers {
		b := l.Common()
		if !b.Visible {
			continue
		}
		switch v := l.(type) {
		case *layer.Background:
			flush()
			if v.Transparent {
				continue
			}
			bg, err := colorutil.ParseHex(v.Color)
			if err != nil {
				return nil, fmt.Errorf("background: %w", err)
			}
			pending = image.NewRGBA(bounds)
			draw.Draw(pending, bounds, image.NewUniform(bg), image.Point{}, draw.Src)
		case *layer.Image:
			flush()
			img, err := c.renderImage(v)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", v.Name, err)
			}
			pending = img
		case *layer.Text:
			flush()
			pending = c.renderText(v)
		case *layer.Shape:
			flush()
			pending = c.renderShape(v)
		case *layer.Adjustment:
			if c.Filter == nil {
				continue
			}
			spec := v.Params.FilterSpec()
			if v.ClipToBelow {
				if pending == nil {
					continue
				}
				filtered, err := c.Filter(pending, spec)
				if err != nil {
					return nil, fmt.Errorf("layer %q: %w", v.Name, err)
				}
				Mix(pending, filtered, b.Opacity)
				continue
			}
			flush()
			filtered, err := c.Filter(result, spec)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", v.Name, err)
			}
			Mix(result, filtered, b.Opacity)
			continue
		default:
			panic(fmt.Sprintf("composite: unhandled variant %T", l))
		}
		pendingOpacity = b.Opacity
	}
	flush()
	return result, nil
}

// renderImage decodes an image layer, applies its effects and places it
// on a transparent canvas.
func (c *Composite) renderImage(l *layer.Image) (*image.RGBA, error) {
	src, err := l.Data.Decode()
	if err != nil {
		return nil, err
	}
	if c.Filter != nil {
		for _, e := range l.Effects {
			out, err := c.Filter(src, e.Spec)
			if err != nil {
				return nil, fmt.Errorf("effect %q: %w", e.Name, err)
			}
			src = out
		}
	} else if len(l.Effects) > 0 {
		c.Log.Debug("effects skipped", zap.String("layer", l.Name), zap.Int("count", len(l.Effects)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	sb := src.Bounds()
	t := geometry.Placement(l.Position, l.Scale, l.Rotation, float64(sb.Dx()), float64(sb.Dy()))
	draw.BiLinear.Transform(dst, aff3(t.Compose(geometry.Translation(-float64(sb.Min.X), -float64(sb.Min.Y)))), src, sb, draw.Over, nil)
	return dst, nil
}

// renderText draws the text with the built-in bitmap face, scaled to the
// requested font size. Position is the top-left corner of the first line.
func (c *Composite) renderText(l *layer.Text) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	lines := strings.Split(l.Text, "\n")
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()

	width := 0
	for _, s := range lines {
		width = max(width, font.MeasureString(face, s).Ceil())
	}
	if width == 0 {
		return dst
	}
	col, err := colorutil.ParseHex(l.Color)
	if err != nil {
		col = colorutil.Black
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, width, lineHeight*len(lines)))
	d := &font.Drawer{Dst: glyphs, Src: image.NewUniform(col), Face: face}
	for i, s := range lines {
		d.Dot = fixed.P(0, i*lineHeight+face.Metrics().Ascent.Ceil())
		d.DrawString(s)
	}

	scale := l.FontSize / float64(lineHeight)
	if scale <= 0 {
		scale = 1
	}
	t := geometry.Translation(l.Position.X, l.Position.Y).Compose(geometry.Scale(scale, scale))
	draw.BiLinear.Transform(dst, aff3(t), glyphs, glyphs.Bounds(), draw.Over, nil)
	return dst
}

// renderShape rasterizes the shape's fill and stroke.
func (c *Composite) renderShape(l *layer.Shape) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	outline := shapeOutline(l)
	if len(outline) < 3 {
		return dst
	}
	if fill, err := colorutil.ParseHex(l.Fill); err == nil && fill.A > 0 {
		z := vector.NewRasterizer(c.Width, c.Height)
		path(z, outline)
		z.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{})
	}
	if stroke, err := colorutil.ParseHex(l.Stroke); err == nil && stroke.A > 0 && l.StrokeWidth > 0 {
		z := vector.NewRasterizer(c.Width, c.Height)
		for i := range outline {
			a, b := outline[i], outline[(i+1)%len(outline)]
			path(z, edgeQuad(a, b, l.StrokeWidth))
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(stroke), image.Point{})
	}
	return dst
}

// shapeOutline returns the closed outline of a shape in canvas space.
func shapeOutline(l *layer.Shape) []geometry.Point2D {
	r := l.Bounds
	switch l.Shape {
	case layer.ShapePolygon:
		return l.Points
	case layer.ShapeEllipse:
		const segments = 64
		c := r.Center()
		pts := make([]geometry.Point2D, segments)
		for i := range pts {
			a := 2 * math.Pi * float64(i) / segments
			pts[i] = geometry.NewPoint2D(c.X+r.Width/2*math.Cos(a), c.Y+r.Height/2*math.Sin(a))
		}
		return pts
	default:
		return []geometry.Point2D{
			{X: r.X, Y: r.Y},
			{X: r.X + r.Width, Y: r.Y},
			{X: r.X + r.Width, Y: r.Y + r.Height},
			{X: r.X, Y: r.Y + r.Height},
		}
	}
}

// edgeQuad returns the rectangle of width w centered on segment ab.
func edgeQuad(a, b geometry.Point2D, w float64) []geometry.Point2D {
	d := b.Sub(a)
	n := math.Hypot(d.X, d.Y)
	if n == 0 {
		return nil
	}
	off := geometry.NewPoint2D(-d.Y/n*w/2, d.X/n*w/2)
	return []geometry.Point2D{a.Add(off), b.Add(off), b.Sub(off), a.Sub(off)}
}

func path(z *vector.Rasterizer, pts []geometry.Point2D) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// over composites src onto dst at the given opacity.
func over(dst, src *image.RGBA, opacity float64) {
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(layer.ClampOpacity(opacity) * 255))})
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

// Mix replaces dst with a blend of dst and filtered weighted by opacity.
func Mix(dst, filtered *image.RGBA, opacity float64) {
	a := layer.ClampOpacity(opacity)
	n := min(len(dst.Pix), len(filtered.Pix))
	for i := 0; i < n; i++ {
		dst.Pix[i] = uint8(math.Round(float64(dst.Pix[i])*(1-a) + float64(filtered.Pix[i])*a))
	}
}

func aff3(t geometry.AffineTransform) f64.Aff3 {
	return f64.Aff3{t.A, t.B, t.TX, t.C, t.D, t.TY}
}
