package layer

import (
	"slices"
)

// Find returns the index of the layer with the given id, or (-1, false).
func Find(layers []Layer, id ID) (int, bool) {
	for i, l := range layers {
		if l.Common().ID == id {
			return i, true
		}
	}
	return -1, false
}

// Get returns the layer with the given id.
func Get(layers []Layer, id ID) (Layer, bool) {
	i, ok := Find(layers, id)
	if !ok {
		return nil, false
	}
	return layers[i], true
}

// Dense reports whether the layers' zIndex values are exactly 0..N-1 in
// slice order.
func Dense(layers []Layer) bool {
	for i, l := range layers {
		if l.Common().ZIndex != i {
			return false
		}
	}
	return true
}

// Normalize rewrites zIndex from slice order and reports whether anything changed.
func Normalize(layers []Layer) bool {
	changed := false
	for i, l := range layers {
		if b := l.Common(); b.ZIndex != i {
			b.ZIndex = i
			changed = true
		}
	}
	return changed
}

// Add appends l on top of layers. The input slice is not modified.
func Add(layers []Layer, l Layer) []Layer {
	out := make([]Layer, len(layers), len(layers)+1)
	copy(out, layers)
	out = append(out, l)
	Normalize(out)
	return out
}

// Insert places l at index z (clamped to [0, len]) and shifts the layers
// above it up by one.
func Insert(layers []Layer, l Layer, z int) []Layer {
	z = max(0, min(z, len(layers)))
	out := slices.Insert(slices.Clone(layers), z, l)
	Normalize(out)
	return out
}

// Remove takes the layer with the given id out of layers. It returns the
// new slice, the removed layer and the index it occupied.
func Remove(layers []Layer, id ID) ([]Layer, Layer, int, bool) {
	i, ok := Find(layers, id)
	if !ok {
		return layers, nil, -1, false
	}
	removed := layers[i]
	out := slices.Delete(slices.Clone(layers), i, i+1)
	Normalize(out)
	return out, removed, i, true
}

// Move re-inserts the layer with the given id at index z, clamped to
// [0, len-1]. Layers in between shift by one. Moving to the current index,
// or moving an unknown id, returns layers unchanged.
func Move(layers []Layer, id ID, z int) []Layer {
	i, ok := Find(layers, id)
	if !ok {
		return layers
	}
	z = max(0, min(z, len(layers)-1))
	if z == i {
		if !Dense(layers) {
			out := slices.Clone(layers)
			Normalize(out)
			return out
		}
		return layers
	}
	l := layers[i]
	out := slices.Delete(slices.Clone(layers), i, i+1)
	out = slices.Insert(out, z, l)
	Normalize(out)
	return out
}

// Manager is a copy-on-write view of a project's layer collection and its
// selection. Every With* method returns a new Manager; the receiver keeps
// its own slice and order.
//
// Managers derived from one another share the layer values themselves, so
// a layer's zIndex is stamped from a Manager's own order each time that
// Manager hands layers out. Reading through any Manager always yields a
// dense zIndex; only one Manager's numbering is visible on a layer at a time.
type Manager struct {
	layers []Layer
	target *ID
}

// NewManager creates a manager holding bg at zIndex 0.
func NewManager(bg *Background) Manager {
	return Manager{}.WithAdded(bg)
}

// FromLayers builds a manager from layers in paint order.
func FromLayers(layers []Layer) Manager {
	out := slices.Clone(layers)
	Normalize(out)
	return Manager{layers: out}
}

// view stamps zIndex from m's order onto its layers and returns them.
func (m Manager) view() []Layer {
	Normalize(m.layers)
	return m.layers
}

// Layers returns the layers in paint order. The slice is a copy; the
// layers themselves are shared.
func (m Manager) Layers() []Layer { return slices.Clone(m.view()) }

// Len returns the number of layers.
func (m Manager) Len() int { return len(m.layers) }

// At returns the layer at paint index i.
func (m Manager) At(i int) Layer { return m.view()[i] }

// Find returns the layer with the given id.
func (m Manager) Find(id ID) (Layer, bool) { return Get(m.view(), id) }

// Index returns the paint index of id.
func (m Manager) Index(id ID) (int, bool) { return Find(m.layers, id) }

// Background returns the project's background layer.
func (m Manager) Background() (*Background, bool) {
	for _, l := range m.layers {
		if bg, ok := l.(*Background); ok {
			return bg, true
		}
	}
	return nil, false
}

// Target returns the selected layer id.
func (m Manager) Target() (ID, bool) {
	if m.target == nil {
		return ID{}, false
	}
	return *m.target, true
}

// WithTarget selects id. Unknown ids clear the selection.
func (m Manager) WithTarget(id ID) Manager {
	if _, ok := Find(m.layers, id); !ok {
		m.target = nil
		return m
	}
	m.target = &id
	return m
}

// WithoutTarget clears the selection.
func (m Manager) WithoutTarget() Manager {
	m.target = nil
	return m
}

// WithAdded returns m with l on top.
func (m Manager) WithAdded(l Layer) Manager {
	m.layers = Add(m.layers, l)
	return m
}

// WithInserted returns m with l at index z.
func (m Manager) WithInserted(l Layer, z int) Manager {
	m.layers = Insert(m.layers, l, z)
	return m
}

// WithMoved returns m with id moved to index z.
func (m Manager) WithMoved(id ID, z int) Manager {
	m.layers = Move(m.layers, id, z)
	return m
}

// WithRemoved returns m without id, the removed layer and its index. The
// selection is cleared if it pointed at the removed layer.
func (m Manager) WithRemoved(id ID) (Manager, Layer, int, bool) {
	layers, removed, z, ok := Remove(m.layers, id)
	if !ok {
		return m, nil, -1, false
	}
	m.layers = layers
	if m.target != nil && *m.target == id {
		m.target = nil
	}
	return m, removed, z, true
}

// Healed returns m with its zIndex invariant restored.
func (m Manager) Healed() (Manager, bool) {
	if Dense(m.layers) {
		return m, false
	}
	m.layers = slices.Clone(m.layers)
	Normalize(m.layers)
	return m, true
}
