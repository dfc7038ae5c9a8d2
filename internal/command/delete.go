package command

import (
	"fmt"

	"go.uber.org/zap"

	"photo-editor/internal/history"
	"photo-editor/internal/layer"
	"photo-editor/internal/render"
)

// Delete removes a layer. While executed it holds the removed layer and
// its detached render node so Undo can re-attach the same node at the same
// index.
type Delete struct {
	doc    *Document
	title  string
	id     layer.ID
	parent render.Container

	removed   layer.Layer // set while executed
	z         int
	wasTarget bool
	released  bool
}

var (
	_ history.Command  = (*Delete)(nil)
	_ history.Releaser = (*Delete)(nil)
)

// NewDelete builds the delete command matching the layer's variant. The
// background layer is refused with ErrProtectedLayer before any command
// exists; an unknown id yields layer.ErrNotFound.
func NewDelete(doc *Document, id layer.ID) (*Delete, error) {
	l, err := doc.lookup(id)
	if err != nil {
		return nil, err
	}
	switch v := l.(type) {
	case *layer.Background:
		return nil, ErrProtectedLayer
	case *layer.Image:
		return DeleteImage(doc, v), nil
	case *layer.Adjustment:
		return DeleteAdjustment(doc, v), nil
	case *layer.Text:
		return DeleteText(doc, v), nil
	case *layer.Shape:
		return DeleteShape(doc, v), nil
	default:
		panic(fmt.Sprintf("command: unhandled variant %T", l))
	}
}

// DeleteImage deletes an image layer, keeping its sprite for undo.
func DeleteImage(doc *Document, l *layer.Image) *Delete {
	return newDelete(doc, l)
}

// DeleteAdjustment deletes an adjustment layer, keeping its container for undo.
func DeleteAdjustment(doc *Document, l *layer.Adjustment) *Delete {
	return newDelete(doc, l)
}

// DeleteText deletes a text layer.
func DeleteText(doc *Document, l *layer.Text) *Delete {
	return newDelete(doc, l)
}

// DeleteShape deletes a shape layer.
func DeleteShape(doc *Document, l *layer.Shape) *Delete {
	return newDelete(doc, l)
}

func newDelete(doc *Document, l layer.Layer) *Delete {
	return &Delete{
		doc:    doc,
		title:  "Delete " + label(l) + " Layer",
		id:     l.Common().ID,
		z:      l.Common().ZIndex,
		parent: doc.Root,
	}
}

func (c *Delete) Title() string { return c.title }

// ID returns the id of the deleted layer.
func (c *Delete) ID() layer.ID { return c.id }

func (c *Delete) Execute() error {
	if target, ok := c.doc.Layers.Target(); ok && target == c.id {
		c.wasTarget = true
	}
	removed, z, err := c.doc.take(c.id)
	if err != nil {
		return err
	}
	c.removed, c.z = removed, z
	c.doc.Log.Debug("deleted layer", zap.Stringer("layer", c.id), zap.Int("z", z))
	return nil
}

func (c *Delete) Undo() error {
	if c.removed == nil {
		return fmt.Errorf("undo %s: nothing deleted", c.id)
	}
	if c.parent != c.doc.Root {
		return fmt.Errorf("undo %s: render root replaced", c.id)
	}
	if err := c.doc.put(c.removed, c.z); err != nil {
		return err
	}
	if c.wasTarget {
		c.doc.Layers = c.doc.Layers.WithTarget(c.id)
	}
	c.removed = nil
	return nil
}

func (c *Delete) Redo() error { return c.Execute() }

// Release destroys the detached node if the command still holds it.
func (c *Delete) Release() {
	if c.released || c.removed == nil {
		return
	}
	c.released = true
	c.doc.dispose(c.removed)
}
