// Package layer models the composable stack of layers in a photo project:
// the layer variants themselves and the ordered collection that keeps
// their zIndex values dense.
package layer

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"photo-editor/internal/render"
)

// ErrNotFound reports a lookup for a layer id that is not in the collection.
// Callers treat it as an expected, recoverable case.
var ErrNotFound = errors.New("layer not found")

// ID uniquely identifies a layer. It never changes after creation.
type ID = uuid.UUID

// NewID returns a fresh layer id.
func NewID() ID {
	return uuid.New()
}

// Kind identifies a layer variant.
type Kind int

const (
	KindBackground Kind = iota
	KindImage
	KindBrightness
	KindSaturation
	KindBloom
	KindDropShadow
	KindText
	KindShape
)

var kindNames = [...]string{
	KindBackground: "background",
	KindImage:      "image",
	KindBrightness: "brightness",
	KindSaturation: "saturation",
	KindBloom:      "bloom",
	KindDropShadow: "dropShadow",
	KindText:       "text",
	KindShape:      "shape",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsAdjustment reports whether layers of this kind modify the layers below
// instead of contributing pixels.
func (k Kind) IsAdjustment() bool {
	switch k {
	case KindBrightness, KindSaturation, KindBloom, KindDropShadow:
		return true
	}
	return false
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown layer kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid layer kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Base holds the fields every layer has.
type Base struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Visible bool    `json:"visible"`
	ZIndex  int     `json:"zIndex"`
	Opacity float64 `json:"opacity"` // 0.0 - 1.0
}

func newBase(name string) Base {
	return Base{ID: NewID(), Name: name, Visible: true, Opacity: 1}
}

// SetOpacity stores o clamped to [0,1].
func (b *Base) SetOpacity(o float64) {
	b.Opacity = ClampOpacity(o)
}

// ClampOpacity clamps o to [0,1]; NaN becomes 1.
func ClampOpacity(o float64) float64 {
	if math.IsNaN(o) {
		return 1
	}
	return math.Max(0, math.Min(1, o))
}

// Layer is the closed set of layer variants: *Background, *Image,
// *Adjustment, *Text and *Shape. Code that branches on the variant must
// switch over all of them.
type Layer interface {
	Common() *Base
	Kind() Kind
	// Clone returns a deep copy of the layer's serializable state. Render
	// handles are not copied.
	Clone() Layer
	// Node returns the render node owned by the layer, or nil.
	Node() render.Node
	// SetNode replaces the layer's render node without destroying the old one.
	SetNode(n render.Node) error

	sealed()
}

// Nodes returns the render nodes of layers in order, skipping layers without one.
func Nodes(layers []Layer) []render.Node {
	nodes := make([]render.Node, 0, len(layers))
	for _, l := range layers {
		if n := l.Node(); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
