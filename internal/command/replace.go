package command

import (
	"fmt"

	"photo-editor/internal/history"
	"photo-editor/internal/imaging"
	"photo-editor/internal/layer"
	"photo-editor/internal/render"
)

// ReplaceImage swaps an image layer's pixel data, for example with the
// result of a remote background removal. The sprite for the inactive data
// is kept aside so undo and redo never re-decode.
type ReplaceImage struct {
	doc   *Document
	title string
	id    layer.ID
	data  imaging.ImageData // data to install on the next swap
	spare render.Node       // sprite for data
}

var (
	_ history.Command  = (*ReplaceImage)(nil)
	_ history.Releaser = (*ReplaceImage)(nil)
)

// NewReplaceImage creates the sprite for data up front; if that fails no
// command is built.
func NewReplaceImage(doc *Document, id layer.ID, data imaging.ImageData, title string) (*ReplaceImage, error) {
	l, err := doc.lookup(id)
	if err != nil {
		return nil, err
	}
	if _, ok := l.(*layer.Image); !ok {
		return nil, fmt.Errorf("%s layer has no image data", l.Kind())
	}
	n, err := doc.Provider.NewSprite(data)
	if err != nil {
		return nil, fmt.Errorf("replace %s: %w", id, err)
	}
	return &ReplaceImage{doc: doc, title: title, id: id, data: data, spare: n}, nil
}

func (c *ReplaceImage) Title() string  { return c.title }
func (c *ReplaceImage) Execute() error { return c.swap() }
func (c *ReplaceImage) Undo() error    { return c.swap() }
func (c *ReplaceImage) Redo() error    { return c.swap() }

func (c *ReplaceImage) swap() error {
	if c.spare == nil {
		return fmt.Errorf("replace %s: released", c.id)
	}
	l, err := c.doc.lookup(c.id)
	if err != nil {
		return err
	}
	img := l.(*layer.Image)
	old, err := c.doc.Arena.Swap(c.id, c.spare)
	if err != nil {
		return err
	}
	c.doc.Root.RemoveChild(old)
	img.Sprite = c.spare
	img.Data, c.data = c.data, img.Data
	c.spare = old
	c.doc.Sync()
	return c.doc.Apply(img)
}

// Release destroys the sprite of the data not currently installed.
func (c *ReplaceImage) Release() {
	if c.spare == nil {
		return
	}
	c.spare.Destroy()
	c.spare = nil
}
