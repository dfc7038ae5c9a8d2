// Package render defines the contract between layers and the external
// retained-mode scene graph that draws them.
//
// The editor never draws pixels itself. Each layer that has a visual
// presence owns a Node obtained from a Provider; the project keeps those
// nodes attached to a root Container in the same order as the layers'
// zIndex values.
package render

import (
	"context"
	"errors"

	"photo-editor/internal/imaging"
	"photo-editor/pkg/geometry"
)

// ErrNoNode is returned when an operation needs a render node that is not bound.
var ErrNoNode = errors.New("render node not bound")

// Node is an opaque handle to a scene-graph object backing a layer.
type Node interface {
	SetPosition(p geometry.Point2D)
	SetScale(s geometry.Point2D)
	SetRotation(degrees float64)
	SetAlpha(alpha float64)
	SetVisible(visible bool)
	SetFilters(filters []Filter)
	// Destroy releases the node's resources. A destroyed node must not be
	// attached again.
	Destroy()
}

// Container is a Node that holds ordered children. Index 0 is painted first.
type Container interface {
	Node
	AddChildAt(child Node, index int)
	RemoveChild(child Node) bool
	IndexOf(child Node) int
	Len() int
}

// Filter is an opaque handle to a renderer-side effect.
type Filter interface {
	Name() string
}

// FilterSpec describes a filter in renderer-neutral terms.
type FilterSpec struct {
	Kind   string             `json:"kind"`
	Values map[string]float64 `json:"values,omitempty"`
	Flags  map[string]bool    `json:"flags,omitempty"`
	Color  string             `json:"color,omitempty"`
}

// Value returns a numeric parameter or fallback when it is absent.
func (s FilterSpec) Value(key string, fallback float64) float64 {
	if v, ok := s.Values[key]; ok {
		return v
	}
	return fallback
}

// Provider creates render nodes. Implementations wrap a concrete backend.
type Provider interface {
	NewSprite(data imaging.ImageData) (Node, error)
	NewContainer() Container
	NewFilter(spec FilterSpec) (Filter, error)
	// Duplicate asynchronously produces an independent node with the same
	// visual parameters as src. It honours ctx cancellation.
	Duplicate(ctx context.Context, src Node) (Node, error)
}

// Clamp keeps index within [0, n].
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// Sync reorders root so that its children appear in exactly the order of
// nodes. Nil entries are skipped, nodes not yet attached are inserted and
// children not listed end up after the listed ones.
func Sync(root Container, nodes []Node) {
	pos := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if root.IndexOf(n) != pos {
			root.RemoveChild(n)
			root.AddChildAt(n, pos)
		}
		pos++
	}
}
