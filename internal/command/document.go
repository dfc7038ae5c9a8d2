// Package command implements the reversible layer mutations recorded in
// the editor's history.
//
// Every command mutates a Document: the layer collection together with the
// render nodes that draw it. Render nodes follow a single-owner rule kept
// in the Document's arena: a node belongs to its layer while the layer is
// in the collection, and to the command that took the layer out while it
// is not. A command destroys a node only when it is released while still
// holding it.
package command

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"photo-editor/internal/layer"
	"photo-editor/internal/render"
	"photo-editor/pkg/geometry"
)

var (
	// ErrProtectedLayer is returned for operations the background layer refuses.
	ErrProtectedLayer = errors.New("background layer cannot be deleted")
	// ErrBackgroundExists is returned when a second background is added.
	ErrBackgroundExists = errors.New("project already has a background layer")
	// ErrDuplicateLayer is returned when a layer id is already in use.
	ErrDuplicateLayer = errors.New("duplicate layer id")
)

// Document is the mutable state commands operate on.
type Document struct {
	Layers   layer.Manager
	Canvas   geometry.Size
	Root     render.Container
	Arena    *render.Arena
	Provider render.Provider
	Log      *zap.Logger
}

// NewDocument creates a document with a background layer and an empty root.
func NewDocument(canvas geometry.Size, p render.Provider, log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}
	return &Document{
		Layers:   layer.NewManager(layer.NewBackground()),
		Canvas:   canvas,
		Root:     p.NewContainer(),
		Arena:    render.NewArena(log),
		Provider: p,
		Log:      log,
	}
}

// Sync reorders the root's children to match layer order, restoring the
// dense zIndex invariant first if it was broken.
func (d *Document) Sync() {
	if healed, changed := d.Layers.Healed(); changed {
		d.Log.Warn("zIndex invariant violated, renormalized")
		d.Layers = healed
	}
	render.Sync(d.Root, layer.Nodes(d.Layers.Layers()))
}

// Bind creates the render node for l if it needs one and has none, and
// pushes l's properties to it. The node is not attached to the root.
func (d *Document) Bind(l layer.Layer) error {
	if l.Node() == nil {
		switch v := l.(type) {
		case *layer.Image:
			n, err := d.Provider.NewSprite(v.Data)
			if err != nil {
				return fmt.Errorf("bind %s: %w", v.ID, err)
			}
			v.Sprite = n
		case *layer.Adjustment:
			v.Container = d.Provider.NewContainer()
		case *layer.Background, *layer.Text, *layer.Shape:
		default:
			panic(fmt.Sprintf("command: unhandled variant %T", l))
		}
	}
	return d.Apply(l)
}

// Apply pushes l's current properties to its render node.
func (d *Document) Apply(l layer.Layer) error {
	switch v := l.(type) {
	case *layer.Image:
		if v.Sprite == nil {
			return nil
		}
		v.Sprite.SetPosition(v.Position)
		v.Sprite.SetScale(v.Scale)
		v.Sprite.SetRotation(v.Rotation)
		v.Sprite.SetAlpha(v.Opacity)
		v.Sprite.SetVisible(v.Visible)
		return layer.BindEffects(d.Provider, v)
	case *layer.Adjustment:
		if v.Container == nil {
			return nil
		}
		f, err := d.Provider.NewFilter(v.Params.FilterSpec())
		if err != nil {
			return fmt.Errorf("apply %s: %w", v.ID, err)
		}
		v.Container.SetFilters([]render.Filter{f})
		v.Container.SetAlpha(v.Opacity)
		v.Container.SetVisible(v.Visible)
		return nil
	case *layer.Background, *layer.Text, *layer.Shape:
		return nil
	default:
		panic(fmt.Sprintf("command: unhandled variant %T", l))
	}
}

// Restore replaces the collection with layers, binding a fresh render node
// for each and attaching it to the root. Nodes of the previous collection
// are destroyed.
func (d *Document) Restore(layers []layer.Layer) error {
	seen := make(map[layer.ID]bool, len(layers))
	for _, l := range layers {
		id := l.Common().ID
		if seen[id] {
			return fmt.Errorf("restore %s: %w", id, ErrDuplicateLayer)
		}
		seen[id] = true
	}
	for _, l := range layers {
		if err := d.Bind(l); err != nil {
			for _, b := range layers {
				if n := b.Node(); n != nil {
					n.Destroy()
					_ = b.SetNode(nil)
				}
			}
			return err
		}
	}
	for _, l := range d.Layers.Layers() {
		if n := l.Node(); n != nil {
			d.Root.RemoveChild(n)
			d.Arena.Release(l.Common().ID)
			_ = l.SetNode(nil)
		}
	}
	for _, l := range layers {
		if n := l.Node(); n != nil {
			d.Arena.Bind(l.Common().ID, n)
		}
	}
	d.Layers = layer.FromLayers(layers)
	d.Sync()
	return nil
}

// lookup finds id or returns ErrNotFound.
func (d *Document) lookup(id layer.ID) (layer.Layer, error) {
	l, ok := d.Layers.Find(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, layer.ErrNotFound)
	}
	return l, nil
}

// take removes id from the collection and detaches its node. Ownership of
// the node moves to the caller.
func (d *Document) take(id layer.ID) (layer.Layer, int, error) {
	m, removed, z, ok := d.Layers.WithRemoved(id)
	if !ok {
		return nil, -1, fmt.Errorf("%s: %w", id, layer.ErrNotFound)
	}
	d.Layers = m
	if n := removed.Node(); n != nil {
		d.Root.RemoveChild(n)
		if err := d.Arena.Transfer(id, render.OwnerCommand); err != nil {
			return nil, -1, err
		}
	}
	d.Sync()
	return removed, z, nil
}

// put inserts l at index z and attaches its node. Ownership of the node
// moves to the layer.
func (d *Document) put(l layer.Layer, z int) error {
	id := l.Common().ID
	if _, ok := d.Layers.Find(id); ok {
		return fmt.Errorf("put %s: %w", id, ErrDuplicateLayer)
	}
	if _, ok := d.Layers.Background(); ok && l.Kind() == layer.KindBackground {
		return fmt.Errorf("put %s: %w", id, ErrBackgroundExists)
	}
	if n := l.Node(); n != nil {
		if d.Arena.Owner(id) == render.OwnerNone {
			d.Arena.Bind(id, n)
		} else if err := d.Arena.Transfer(id, render.OwnerLayer); err != nil {
			return err
		}
	}
	d.Layers = d.Layers.WithInserted(l, z)
	d.Sync()
	return nil
}

// dispose destroys the node of a layer held outside the collection.
func (d *Document) dispose(l layer.Layer) {
	id := l.Common().ID
	if d.Arena.Owner(id) != render.OwnerCommand {
		return
	}
	d.Arena.Release(id)
	_ = l.SetNode(nil)
}

// label names a layer's variant for command titles.
func label(l layer.Layer) string {
	switch v := l.(type) {
	case *layer.Background:
		return "Background"
	case *layer.Image:
		return "Image"
	case *layer.Adjustment:
		return v.Params.Title()
	case *layer.Text:
		return "Text"
	case *layer.Shape:
		return "Shape"
	default:
		panic(fmt.Sprintf("command: unhandled variant %T", l))
	}
}
