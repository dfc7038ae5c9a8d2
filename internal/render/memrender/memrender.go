// Package memrender is an in-memory scene graph implementing render.Provider.
// It records every call so tests and headless tools can inspect the
// resulting tree.
package memrender

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"photo-editor/internal/imaging"
	"photo-editor/internal/render"
	"photo-editor/pkg/geometry"
)

// ErrDestroyed is returned when duplicating a node that was already destroyed.
var ErrDestroyed = errors.New("node destroyed")

// Node is a recorded scene-graph node.
type Node struct {
	ID        int
	Source    imaging.ImageData
	Position  geometry.Point2D
	Scale     geometry.Point2D
	Rotation  float64
	Alpha     float64
	Visible   bool
	Filters   []render.Filter
	Destroyed bool

	children []render.Node
	provider *Provider
}

var _ render.Container = (*Node)(nil)

func (n *Node) SetPosition(p geometry.Point2D) { n.Position = p }
func (n *Node) SetScale(s geometry.Point2D)    { n.Scale = s }
func (n *Node) SetRotation(degrees float64)    { n.Rotation = degrees }
func (n *Node) SetAlpha(alpha float64)         { n.Alpha = alpha }
func (n *Node) SetVisible(visible bool)        { n.Visible = visible }

func (n *Node) SetFilters(filters []render.Filter) {
	n.Filters = slices.Clone(filters)
}

// Destroy marks the node destroyed. Destroying twice is recorded as a fault.
func (n *Node) Destroy() {
	if n.Destroyed {
		n.provider.DoubleDestroys++
		return
	}
	n.Destroyed = true
	n.provider.live--
}

func (n *Node) AddChildAt(child render.Node, index int) {
	index = render.Clamp(index, len(n.children))
	n.children = slices.Insert(n.children, index, child)
}

func (n *Node) RemoveChild(child render.Node) bool {
	i := n.IndexOf(child)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	return true
}

func (n *Node) IndexOf(child render.Node) int {
	return slices.Index(n.children, child)
}

func (n *Node) Len() int { return len(n.children) }

// Children returns a copy of the attached children in paint order.
func (n *Node) Children() []render.Node {
	return slices.Clone(n.children)
}

// Filter is a recorded filter handle.
type Filter struct {
	Spec render.FilterSpec
}

func (f *Filter) Name() string { return f.Spec.Kind }

// Provider creates in-memory nodes.
type Provider struct {
	// DuplicateErr, when set, makes Duplicate fail with this error.
	DuplicateErr error
	// Gate, when set, is received from before Duplicate returns.
	Gate chan struct{}
	// Waiting, when set, is sent to once Duplicate starts waiting on Gate.
	Waiting chan struct{}

	DoubleDestroys int

	nextID  int
	live    int
	created int
}

var _ render.Provider = (*Provider)(nil)

// New creates a provider.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) newNode() *Node {
	p.nextID++
	p.live++
	p.created++
	return &Node{
		ID:       p.nextID,
		Scale:    geometry.Point2D{X: 1, Y: 1},
		Alpha:    1,
		Visible:  true,
		provider: p,
	}
}

func (p *Provider) NewSprite(data imaging.ImageData) (render.Node, error) {
	if data.Empty() {
		return nil, fmt.Errorf("sprite %q: %w", data.Name, imaging.ErrEmptyImage)
	}
	n := p.newNode()
	n.Source = data
	return n, nil
}

func (p *Provider) NewContainer() render.Container {
	return p.newNode()
}

func (p *Provider) NewFilter(spec render.FilterSpec) (render.Filter, error) {
	if spec.Kind == "" {
		return nil, errors.New("filter kind required")
	}
	return &Filter{Spec: spec}, nil
}

func (p *Provider) Duplicate(ctx context.Context, src render.Node) (render.Node, error) {
	if p.Gate != nil {
		if p.Waiting != nil {
			p.Waiting <- struct{}{}
		}
		select {
		case <-p.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.DuplicateErr != nil {
		return nil, p.DuplicateErr
	}
	s, ok := src.(*Node)
	if !ok {
		return nil, fmt.Errorf("duplicate: foreign node %T", src)
	}
	if s.Destroyed {
		return nil, ErrDestroyed
	}
	n := p.newNode()
	n.Source = s.Source.Clone()
	n.Position, n.Scale, n.Rotation = s.Position, s.Scale, s.Rotation
	n.Alpha, n.Visible = s.Alpha, s.Visible
	n.Filters = slices.Clone(s.Filters)
	return n, nil
}

// Live returns the number of nodes created and not yet destroyed.
func (p *Provider) Live() int { return p.live }

// Created returns the total number of nodes ever created.
func (p *Provider) Created() int { return p.created }
