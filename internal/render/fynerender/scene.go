package fynerender

import (
	"image"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"photo-editor/internal/composite"
	"photo-editor/internal/filter"
	"photo-editor/pkg/geometry"
)

// Scene is a widget that displays a root group scaled to fit.
type Scene struct {
	widget.BaseWidget

	p      *Provider
	root   *Group
	raster *fynecanvas.Raster
	width  int
	height int

	// OnTap, when set, receives taps in canvas coordinates.
	OnTap func(geometry.Point2D)
}

var _ fyne.Tappable = (*Scene)(nil)

// NewScene creates a scene drawing root on a width x height canvas.
func NewScene(p *Provider, root *Group, width, height int) *Scene {
	s := &Scene{p: p, root: root, width: width, height: height}
	s.raster = fynecanvas.NewRaster(s.draw)
	s.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	s.raster.SetMinSize(fyne.NewSize(400, 300))
	p.OnChange(s.raster.Refresh)
	s.ExtendBaseWidget(s)
	return s
}

// SetCanvasSize changes the logical canvas size.
func (s *Scene) SetCanvasSize(width, height int) {
	s.p.update(func() { s.width, s.height = width, height })
}

// SetRoot replaces the group being drawn.
func (s *Scene) SetRoot(root *Group) {
	s.p.update(func() { s.root = root })
}

func (s *Scene) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(s.raster)
}

// Tapped maps a tap from widget to canvas coordinates.
func (s *Scene) Tapped(ev *fyne.PointEvent) {
	if s.OnTap == nil {
		return
	}
	size := s.Size()
	s.p.mu.Lock()
	scale, ox, oy := fit(s.width, s.height, int(size.Width), int(size.Height))
	s.p.mu.Unlock()
	if scale == 0 {
		return
	}
	s.OnTap(geometry.NewPoint2D(
		(float64(ev.Position.X)-ox)/scale,
		(float64(ev.Position.Y)-oy)/scale,
	))
}

// Snapshot renders the root at canvas resolution.
func (s *Scene) Snapshot() *image.RGBA {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	out := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.p.paint(out, s.root)
	return out
}

// draw is the raster callback.
func (s *Scene) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{40, 40, 40, 255}), image.Point{}, draw.Src)
	if w == 0 || h == 0 || s.root == nil {
		return out
	}
	full := s.Snapshot()
	scale, ox, oy := fit(full.Bounds().Dx(), full.Bounds().Dy(), w, h)
	if scale == 0 {
		return out
	}
	draw.ApproxBiLinear.Transform(out, f64.Aff3{scale, 0, ox, 0, scale, oy}, full, full.Bounds(), draw.Over, nil)
	return out
}

// fit returns the uniform scale and offset that centers a cw x ch canvas
// in a w x h area.
func fit(cw, ch, w, h int) (scale, ox, oy float64) {
	if cw <= 0 || ch <= 0 || w <= 0 || h <= 0 {
		return 0, 0, 0
	}
	scale = math.Min(float64(w)/float64(cw), float64(h)/float64(ch))
	ox = (float64(w) - float64(cw)*scale) / 2
	oy = (float64(h) - float64(ch)*scale) / 2
	return scale, ox, oy
}

// paint composites g's children onto dst. Callers hold p.mu.
func (p *Provider) paint(dst *image.RGBA, g *Group) {
	for _, child := range g.children {
		switch c := child.(type) {
		case *Sprite:
			if !c.visible || c.destroyed || c.src == nil {
				continue
			}
			p.paintSprite(dst, c)
		case *Group:
			if !c.visible || c.destroyed {
				continue
			}
			if len(c.children) > 0 {
				layer := image.NewRGBA(dst.Bounds())
				p.paint(layer, c)
				mask := image.NewUniform(color.Alpha{A: alpha8(c.alpha)})
				draw.DrawMask(dst, dst.Bounds(), layer, image.Point{}, mask, image.Point{}, draw.Over)
			}
			if len(c.filters) > 0 {
				filtered, err := filter.ApplyAll(dst, specs(c.filters))
				if err != nil {
					p.log.Warn("group filter", zap.Error(err))
					continue
				}
				composite.Mix(dst, filtered, c.alpha)
			}
		}
	}
}

func (p *Provider) paintSprite(dst *image.RGBA, s *Sprite) {
	if s.filtered == nil {
		out, err := filter.ApplyAll(s.src, specs(s.filters))
		if err != nil {
			p.log.Warn("sprite filter", zap.Error(err))
			out, _ = filter.ApplyAll(s.src, nil)
		}
		s.filtered = out
	}
	b := s.filtered.Bounds()
	t := geometry.Placement(s.pos, s.scale, s.rotation, float64(b.Dx()), float64(b.Dy()))
	opts := &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: alpha8(s.alpha)})}
	draw.BiLinear.Transform(dst, f64.Aff3{t.A, t.B, t.TX, t.C, t.D, t.TY}, s.filtered, b, draw.Over, opts)
}

func alpha8(a float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, a)) * 255))
}
