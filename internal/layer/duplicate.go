package layer

import (
	"context"
	"fmt"

	"photo-editor/internal/render"
)

// Duplicate creates an independent copy of src with a fresh id. The copy
// gets its own sprite from the provider, which may block; all state read
// from src is captured before that call. The copy is not inserted into any
// collection. On failure nothing is allocated that the caller must free.
func Duplicate(ctx context.Context, p render.Provider, src *Image) (*Image, error) {
	srcID := src.ID
	dup := src.Clone().(*Image)
	sprite := src.Sprite
	if sprite == nil {
		return nil, fmt.Errorf("duplicate %s: %w", srcID, render.ErrNoNode)
	}

	node, err := p.Duplicate(ctx, sprite)
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", srcID, err)
	}

	dup.ID = NewID()
	dup.Name = dup.Name + " copy"
	dup.Sprite = node
	if err := BindEffects(p, dup); err != nil {
		node.Destroy()
		return nil, fmt.Errorf("duplicate %s: %w", srcID, err)
	}
	return dup, nil
}

// BindEffects creates renderer filters for l's effects and applies them to
// its sprite.
func BindEffects(p render.Provider, l *Image) error {
	filters := make([]render.Filter, 0, len(l.Effects))
	for i := range l.Effects {
		f, err := p.NewFilter(l.Effects[i].Spec)
		if err != nil {
			return fmt.Errorf("effect %q: %w", l.Effects[i].Name, err)
		}
		l.Effects[i].Filter = f
		filters = append(filters, f)
	}
	if l.Sprite != nil {
		l.Sprite.SetFilters(filters)
	}
	return nil
}
