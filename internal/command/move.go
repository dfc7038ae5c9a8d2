package command

import (
	"fmt"

	"photo-editor/internal/history"
	"photo-editor/internal/layer"
)

// Move changes a layer's paint index.
type Move struct {
	doc   *Document
	title string
	id    layer.ID
	from  int
	to    int
}

var _ history.Command = (*Move)(nil)

// NewMove moves id to index z, clamped to the collection. It returns
// ok=false when the move would not change anything.
func NewMove(doc *Document, id layer.ID, z int, title string) (*Move, bool, error) {
	from, ok := doc.Layers.Index(id)
	if !ok {
		return nil, false, fmt.Errorf("%s: %w", id, layer.ErrNotFound)
	}
	to := max(0, min(z, doc.Layers.Len()-1))
	if to == from {
		return nil, false, nil
	}
	return &Move{doc: doc, title: title, id: id, from: from, to: to}, true, nil
}

func (c *Move) Title() string  { return c.title }
func (c *Move) Execute() error { return c.move(c.to) }
func (c *Move) Undo() error    { return c.move(c.from) }
func (c *Move) Redo() error    { return c.move(c.to) }

func (c *Move) move(z int) error {
	if _, err := c.doc.lookup(c.id); err != nil {
		return err
	}
	c.doc.Layers = c.doc.Layers.WithMoved(c.id, z)
	c.doc.Sync()
	return nil
}
