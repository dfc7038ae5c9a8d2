package command

import (
	"photo-editor/internal/history"
	"photo-editor/internal/layer"
)

// Insert adds a layer at a paint index. While undone it holds the layer
// and its detached node.
type Insert struct {
	doc   *Document
	title string
	l     layer.Layer
	z     int
	live  bool
}

var (
	_ history.Command  = (*Insert)(nil)
	_ history.Releaser = (*Insert)(nil)
)

// NewAdd inserts l on top of the stack.
func NewAdd(doc *Document, l layer.Layer) *Insert {
	return NewInsert(doc, l, doc.Layers.Len())
}

// NewInsert inserts l at index z.
func NewInsert(doc *Document, l layer.Layer, z int) *Insert {
	return &Insert{
		doc:   doc,
		title: "Add " + label(l) + " Layer",
		l:     l,
		z:     z,
	}
}

// NewDuplicate inserts dup, a copy made by layer.Duplicate, at index z.
func NewDuplicate(doc *Document, dup *layer.Image, z int) *Insert {
	c := NewInsert(doc, dup, z)
	c.title = "Duplicate Layer"
	return c
}

func (c *Insert) Title() string { return c.title }

func (c *Insert) Execute() error {
	created := c.l.Node() == nil
	if err := c.doc.Bind(c.l); err != nil {
		return err
	}
	if err := c.doc.put(c.l, c.z); err != nil {
		if n := c.l.Node(); created && n != nil {
			n.Destroy()
			_ = c.l.SetNode(nil)
		}
		return err
	}
	c.live = true
	return nil
}

func (c *Insert) Undo() error {
	if _, _, err := c.doc.take(c.l.Common().ID); err != nil {
		return err
	}
	c.live = false
	return nil
}

func (c *Insert) Redo() error {
	if err := c.doc.put(c.l, c.z); err != nil {
		return err
	}
	c.live = true
	return nil
}

// Release destroys the node of an undone insert.
func (c *Insert) Release() {
	if c.live {
		return
	}
	c.doc.dispose(c.l)
}
