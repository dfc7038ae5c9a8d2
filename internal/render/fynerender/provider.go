// Package fynerender implements render.Provider on top of a fyne raster.
// Nodes form a retained scene graph that Scene composites on every redraw.
package fynerender

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"photo-editor/internal/filter"
	"photo-editor/internal/imaging"
	"photo-editor/internal/render"
	"photo-editor/pkg/geometry"
)

// Provider creates fyne-backed nodes. All nodes of one provider share its
// lock, so the raster callback never sees a half-applied change.
type Provider struct {
	mu       sync.Mutex
	log      *zap.Logger
	onChange func()
}

var _ render.Provider = (*Provider)(nil)

// NewProvider creates a provider.
func NewProvider(log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{log: log}
}

// OnChange sets the callback invoked after any node changes.
func (p *Provider) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// update runs fn under the lock and then notifies the change callback.
func (p *Provider) update(fn func()) {
	p.mu.Lock()
	fn()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type node struct {
	p         *Provider
	pos       geometry.Point2D
	scale     geometry.Point2D
	rotation  float64
	alpha     float64
	visible   bool
	filters   []render.Filter
	destroyed bool
}

func (p *Provider) newNode() node {
	return node{p: p, scale: geometry.Point2D{X: 1, Y: 1}, alpha: 1, visible: true}
}

// Sprite draws a decoded image.
type Sprite struct {
	node
	src      image.Image
	filtered *image.RGBA // src with filters applied, nil when stale
}

// Group holds child nodes. A group's filters apply to everything painted
// before it within its parent, mirroring adjustment layers.
type Group struct {
	node
	children []render.Node
}

// Filter is a validated filter description.
type Filter struct {
	spec render.FilterSpec
}

func (f *Filter) Name() string { return f.spec.Kind }

func (p *Provider) NewSprite(data imaging.ImageData) (render.Node, error) {
	img, err := data.Decode()
	if err != nil {
		return nil, fmt.Errorf("sprite %q: %w", data.Name, err)
	}
	return &Sprite{node: p.newNode(), src: img}, nil
}

func (p *Provider) NewContainer() render.Container {
	return &Group{node: p.newNode()}
}

func (p *Provider) NewFilter(spec render.FilterSpec) (render.Filter, error) {
	if !filter.Known(spec.Kind) {
		return nil, fmt.Errorf("%q: %w", spec.Kind, filter.ErrUnknownFilter)
	}
	return &Filter{spec: spec}, nil
}

// Duplicate copies a sprite's pixels on a background goroutine.
func (p *Provider) Duplicate(ctx context.Context, n render.Node) (render.Node, error) {
	src, ok := n.(*Sprite)
	if !ok {
		return nil, fmt.Errorf("duplicate: %T is not a sprite", n)
	}
	p.mu.Lock()
	if src.destroyed {
		p.mu.Unlock()
		return nil, fmt.Errorf("duplicate: %w", render.ErrNoNode)
	}
	cp := &Sprite{node: src.node, src: src.src}
	cp.filters = slices.Clone(src.filters)
	p.mu.Unlock()

	done := make(chan *image.RGBA, 1)
	go func() {
		b := cp.src.Bounds()
		pix := image.NewRGBA(b)
		draw.Draw(pix, b, cp.src, b.Min, draw.Src)
		done <- pix
	}()
	select {
	case pix := <-done:
		cp.src = pix
		return cp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *node) SetPosition(pos geometry.Point2D) { n.p.update(func() { n.pos = pos }) }
func (n *node) SetScale(s geometry.Point2D)      { n.p.update(func() { n.scale = s }) }
func (n *node) SetRotation(degrees float64)      { n.p.update(func() { n.rotation = degrees }) }
func (n *node) SetAlpha(alpha float64)           { n.p.update(func() { n.alpha = alpha }) }
func (n *node) SetVisible(visible bool)          { n.p.update(func() { n.visible = visible }) }

func (n *node) SetFilters(filters []render.Filter) {
	n.p.update(func() { n.filters = slices.Clone(filters) })
}

func (s *Sprite) SetFilters(filters []render.Filter) {
	s.p.update(func() {
		s.filters = slices.Clone(filters)
		s.filtered = nil
	})
}

func (s *Sprite) Destroy() {
	s.p.update(func() {
		if s.destroyed {
			s.p.log.Warn("sprite destroyed twice")
		}
		s.destroyed = true
		s.src, s.filtered = nil, nil
	})
}

func (g *Group) Destroy() {
	g.p.update(func() {
		g.destroyed = true
		g.children = nil
	})
}

func (g *Group) AddChildAt(child render.Node, index int) {
	g.p.update(func() {
		index = render.Clamp(index, len(g.children))
		g.children = slices.Insert(g.children, index, child)
	})
}

func (g *Group) RemoveChild(child render.Node) bool {
	removed := false
	g.p.update(func() {
		if i := slices.Index(g.children, child); i >= 0 {
			g.children = slices.Delete(g.children, i, i+1)
			removed = true
		}
	})
	return removed
}

func (g *Group) IndexOf(child render.Node) int {
	g.p.mu.Lock()
	defer g.p.mu.Unlock()
	return slices.Index(g.children, child)
}

func (g *Group) Len() int {
	g.p.mu.Lock()
	defer g.p.mu.Unlock()
	return len(g.children)
}

// specs returns the filter descriptions of fs.
func specs(fs []render.Filter) []render.FilterSpec {
	out := make([]render.FilterSpec, 0, len(fs))
	for _, f := range fs {
		if ff, ok := f.(*Filter); ok {
			out = append(out, ff.spec)
		}
	}
	return out
}
