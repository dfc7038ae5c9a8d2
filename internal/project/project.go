// Package project binds a layer collection, its render nodes and its
// history into one editable document.
//
// Every mutating operation returns a fresh Snapshot and emits it as an
// EventChanged. Operations on a layer id that no longer exists are no-ops:
// the UI may race a delete with an edit, so the unchanged snapshot is
// returned without an error.
package project

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"photo-editor/internal/command"
	"photo-editor/internal/composite"
	"photo-editor/internal/history"
	"photo-editor/internal/imaging"
	"photo-editor/internal/layer"
	"photo-editor/internal/logger"
	"photo-editor/internal/ocr"
	"photo-editor/internal/remote"
	"photo-editor/internal/render"
	"photo-editor/pkg/geometry"
)

var (
	// ErrProtectedLayer is returned when removing the background layer.
	ErrProtectedLayer = command.ErrProtectedLayer
	// ErrInvalidSize is returned for non-positive canvas dimensions.
	ErrInvalidSize = command.ErrInvalidSize
	// ErrNotImage is returned when an image operation targets another kind.
	ErrNotImage = errors.New("layer is not an image")
	// ErrBackgroundExists is returned when adding a second background.
	ErrBackgroundExists = command.ErrBackgroundExists
	// ErrDuplicateLayer is returned for a layer id that is already in use.
	ErrDuplicateLayer = command.ErrDuplicateLayer
)

// Recognizer finds words in an encoded image.
type Recognizer interface {
	Words(ctx context.Context, encoded []byte) ([]ocr.Word, error)
}

// Settings describes the project as a whole.
type Settings struct {
	Name      string    `json:"name"`
	Created   time.Time `json:"dateCreated"`
	Modified  time.Time `json:"dateModified"`
	SizeBytes int64     `json:"size"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
}

// Snapshot is an immutable view of the project handed to the UI.
type Snapshot struct {
	Settings   Settings       `json:"settings"`
	Layers     []layer.Record `json:"layers"`
	Target     *layer.ID      `json:"target,omitempty"`
	UndoTitles []string       `json:"-"`
	RedoTitles []string       `json:"-"`
}

// Find returns the record for id.
func (s Snapshot) Find(id layer.ID) (layer.Record, bool) {
	for _, r := range s.Layers {
		if r.ID == id {
			return r, true
		}
	}
	return layer.Record{}, false
}

// Options configure a project. Zero values are usable.
type Options struct {
	UndoDepth  int
	RedoDepth  int
	Remover    remote.BackgroundRemover
	Compressor remote.Compressor
	Recognizer Recognizer
	Log        *zap.Logger

	// Background is the initial background color of a new project.
	Background string
}

// Project is the top-level editable document.
//
// The mutex guards the document and history. It is never held while
// waiting on the renderer or a remote service.
type Project struct {
	mu       sync.Mutex
	doc      *command.Document
	history  *history.Manager
	settings Settings

	remover    remote.BackgroundRemover
	compressor remote.Compressor
	recognizer Recognizer
	log        *zap.Logger

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// New creates a project with a single background layer.
func New(name string, canvas geometry.Size, p render.Provider, opts Options) (*Project, error) {
	if canvas.Empty() {
		return nil, fmt.Errorf("%gx%g: %w", canvas.Width, canvas.Height, ErrInvalidSize)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	doc := command.NewDocument(canvas, p, log)
	if bg, ok := doc.Layers.Background(); ok && opts.Background != "" {
		bg.Color = opts.Background
	}
	now := time.Now()
	return &Project{
		doc:        doc,
		history:    history.NewManager(opts.UndoDepth, opts.RedoDepth, log),
		settings:   Settings{Name: name, Created: now, Modified: now},
		remover:    opts.Remover,
		compressor: opts.Compressor,
		recognizer: opts.Recognizer,
		log:        log,
		listeners:  make(map[EventType][]EventListener),
	}, nil
}

// Root returns the render container holding the layers' nodes.
func (p *Project) Root() render.Container {
	return p.doc.Root
}

// Snapshot returns the current state.
func (p *Project) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Project) snapshot() Snapshot {
	layers := p.doc.Layers.Layers()
	s := p.settings
	s.Width, s.Height = p.doc.Canvas.Width, p.doc.Canvas.Height
	s.SizeBytes = 0
	for _, l := range layers {
		if img, ok := l.(*layer.Image); ok {
			s.SizeBytes += int64(len(img.Data.Source))
		}
	}
	snap := Snapshot{
		Settings:   s,
		Layers:     layer.ToRecords(layers),
		UndoTitles: p.history.UndoTitles(),
		RedoTitles: p.history.RedoTitles(),
	}
	if id, ok := p.doc.Layers.Target(); ok {
		snap.Target = &id
	}
	return snap
}

// run builds a command under the lock and records it. A nil command with
// a nil error is a no-op. The then functions run under the lock after the
// command succeeded.
func (p *Project) run(build func() (history.Command, error), then ...func()) (Snapshot, error) {
	p.mu.Lock()
	cmd, err := build()
	if err == nil && cmd != nil {
		if err = p.history.Run(cmd); err != nil {
			if r, ok := cmd.(history.Releaser); ok {
				r.Release()
			}
		} else {
			p.settings.Modified = time.Now()
			for _, fn := range then {
				fn()
			}
		}
	}
	snap := p.snapshot()
	p.mu.Unlock()

	switch {
	case errors.Is(err, layer.ErrNotFound):
		p.log.Debug("layer not found", zap.Error(err))
		return snap, nil
	case err != nil:
		return snap, err
	case cmd == nil:
		return snap, nil
	}
	p.Emit(EventChanged, snap)
	return snap, nil
}

// find looks up id under the lock.
func (p *Project) find(id layer.ID) (layer.Layer, error) {
	l, ok := p.doc.Layers.Find(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, layer.ErrNotFound)
	}
	return l, nil
}

func (p *Project) image(id layer.ID) (*layer.Image, error) {
	l, err := p.find(id)
	if err != nil {
		return nil, err
	}
	img, ok := l.(*layer.Image)
	if !ok {
		return nil, fmt.Errorf("%s layer: %w", l.Kind(), ErrNotImage)
	}
	return img, nil
}

func (p *Project) selectLayer(id layer.ID) func() {
	return func() { p.doc.Layers = p.doc.Layers.WithTarget(id) }
}

// CreateLayer builds an image layer centered on the canvas at 1:1 scale.
// The layer is not added to the project.
func (p *Project) CreateLayer(data imaging.ImageData) (*layer.Image, error) {
	if data.Empty() {
		return nil, fmt.Errorf("create layer %q: %w", data.Name, imaging.ErrEmptyImage)
	}
	p.mu.Lock()
	center := p.doc.Canvas.Center()
	p.mu.Unlock()
	return layer.NewImage(data, center), nil
}

// AddLayer puts l on top of the stack and selects it. A project has
// exactly one background, so background layers are refused.
func (p *Project) AddLayer(l layer.Layer) (Snapshot, error) {
	if l.Kind() == layer.KindBackground {
		return p.Snapshot(), fmt.Errorf("add %s: %w", l.Common().ID, ErrBackgroundExists)
	}
	return p.run(func() (history.Command, error) {
		return command.NewAdd(p.doc, l), nil
	}, p.selectLayer(l.Common().ID))
}

// NewAdjustmentLayer adds an adjustment of the given kind with default
// parameters.
func (p *Project) NewAdjustmentLayer(kind layer.Kind) (Snapshot, error) {
	adj, err := layer.NewAdjustment(kind)
	if err != nil {
		return p.Snapshot(), err
	}
	return p.AddLayer(adj)
}

// RemoveLayer deletes a layer. Removing the background is refused with a
// notice and nothing is recorded.
func (p *Project) RemoveLayer(id layer.ID) (Snapshot, error) {
	snap, err := p.run(func() (history.Command, error) {
		return command.NewDelete(p.doc, id)
	})
	if errors.Is(err, ErrProtectedLayer) {
		p.log.Warn("refused to remove layer", zap.Stringer("layer", id), zap.Error(err))
		p.Emit(EventNotice, Notice{Message: "The background layer can be hidden but not deleted.", Err: err})
	}
	return snap, err
}

// HideLayer hides a layer.
func (p *Project) HideLayer(id layer.ID) (Snapshot, error) { return p.setVisible(id, false) }

// ShowLayer shows a layer.
func (p *Project) ShowLayer(id layer.ID) (Snapshot, error) { return p.setVisible(id, true) }

func (p *Project) setVisible(id layer.ID, visible bool) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		l, err := p.find(id)
		if err != nil {
			return nil, err
		}
		if l.Common().Visible == visible {
			return nil, nil
		}
		return command.SetVisible(p.doc, id, visible)
	})
}

// MoveLayerFront moves a layer to the top of the stack.
func (p *Project) MoveLayerFront(id layer.ID) (Snapshot, error) {
	return p.move(id, "Bring to Front", func(int) int { return p.doc.Layers.Len() - 1 })
}

// MoveLayerBack moves a layer to the bottom of the stack.
func (p *Project) MoveLayerBack(id layer.ID) (Snapshot, error) {
	return p.move(id, "Send to Back", func(int) int { return 0 })
}

// MoveLayerUp moves a layer one step towards the front.
func (p *Project) MoveLayerUp(id layer.ID) (Snapshot, error) {
	return p.move(id, "Move Layer Up", func(z int) int { return z + 1 })
}

// MoveLayerDown moves a layer one step towards the back.
func (p *Project) MoveLayerDown(id layer.ID) (Snapshot, error) {
	return p.move(id, "Move Layer Down", func(z int) int { return z - 1 })
}

func (p *Project) move(id layer.ID, title string, target func(z int) int) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		z, ok := p.doc.Layers.Index(id)
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, layer.ErrNotFound)
		}
		cmd, changed, err := command.NewMove(p.doc, id, target(z), title)
		if err != nil || !changed {
			return nil, err
		}
		return cmd, nil
	})
}

// RenameLayer changes a layer's display name.
func (p *Project) RenameLayer(id layer.ID, name string) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.Rename(p.doc, id, name)
	})
}

// ResetLayer restores a layer's adjustable properties to their defaults.
func (p *Project) ResetLayer(id layer.ID) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.Reset(p.doc, id)
	})
}

// SetOpacity changes a layer's opacity.
func (p *Project) SetOpacity(id layer.ID, opacity float64) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.SetOpacity(p.doc, id, opacity)
	})
}

// UpdateAdjustment replaces an adjustment layer's parameters.
func (p *Project) UpdateAdjustment(id layer.ID, params layer.Params, clipToBelow bool) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.SetParams(p.doc, id, params, clipToBelow)
	})
}

// SetEffects replaces an image layer's effects.
func (p *Project) SetEffects(id layer.ID, effects []layer.Effect) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.SetEffects(p.doc, id, effects)
	})
}

// TransformLayer moves, scales and rotates an image or text layer.
func (p *Project) TransformLayer(id layer.ID, pos, scale geometry.Point2D, rotation float64) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.Transform(p.doc, id, pos, scale, rotation)
	})
}

// EditText replaces a text layer's content and style.
func (p *Project) EditText(id layer.ID, props layer.TextProps) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.SetText(p.doc, id, props)
	})
}

// SetBackground changes the background color and transparency.
func (p *Project) SetBackground(color string, transparent bool) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.SetBackground(p.doc, color, transparent)
	})
}

// ChangeCanvasDimensions resizes the canvas. Positioned layers keep their
// place relative to the canvas center.
func (p *Project) ChangeCanvasDimensions(width, height float64) (Snapshot, error) {
	return p.run(func() (history.Command, error) {
		return command.NewResizeCanvas(p.doc, geometry.NewSize(width, height))
	})
}

// Undo reverts the most recent command. It is a no-op when there is none.
func (p *Project) Undo() (Snapshot, error) { return p.step(p.history.Undo) }

// Redo re-applies the most recently undone command.
func (p *Project) Redo() (Snapshot, error) { return p.step(p.history.Redo) }

func (p *Project) step(fn func() (bool, error)) (Snapshot, error) {
	p.mu.Lock()
	done, err := fn()
	if done {
		p.settings.Modified = time.Now()
	}
	snap := p.snapshot()
	p.mu.Unlock()
	if err != nil {
		return snap, err
	}
	if done {
		p.Emit(EventChanged, snap)
	}
	return snap, nil
}

// SetHistoryLimits changes the undo and redo depths. Commands beyond the
// new depths are released, so the new state is emitted.
func (p *Project) SetHistoryLimits(undo, redo int) Snapshot {
	p.mu.Lock()
	p.history.SetLimits(undo, redo)
	snap := p.snapshot()
	p.mu.Unlock()
	p.Emit(EventChanged, snap)
	return snap
}

// Select makes id the target. Unknown ids clear the selection.
func (p *Project) Select(id layer.ID) Snapshot {
	p.mu.Lock()
	p.doc.Layers = p.doc.Layers.WithTarget(id)
	snap := p.snapshot()
	p.mu.Unlock()
	p.Emit(EventSelectionChanged, snap)
	return snap
}

// Deselect clears the target.
func (p *Project) Deselect() Snapshot {
	p.mu.Lock()
	p.doc.Layers = p.doc.Layers.WithoutTarget()
	snap := p.snapshot()
	p.mu.Unlock()
	p.Emit(EventSelectionChanged, snap)
	return snap
}

// LayerAt returns the topmost visible image or shape layer under a canvas
// point.
func (p *Project) LayerAt(pt geometry.Point2D) (layer.ID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	layers := p.doc.Layers.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		switch v := layers[i].(type) {
		case *layer.Image:
			if v.Visible && v.Contains(pt) {
				return v.ID, true
			}
		case *layer.Shape:
			if v.Visible && v.Contains(pt) {
				return v.ID, true
			}
		}
	}
	return layer.ID{}, false
}

// DuplicateLayer copies an image layer and inserts the copy directly above
// it. The source is captured before the renderer is asked for a new
// sprite; if the source was deleted in the meantime the copy is discarded.
func (p *Project) DuplicateLayer(ctx context.Context, id layer.ID) (Snapshot, error) {
	p.mu.Lock()
	src, err := p.image(id)
	if err != nil {
		snap := p.snapshot()
		p.mu.Unlock()
		return snap, ignoreNotFound(err)
	}
	captured := src.Clone().(*layer.Image)
	captured.Sprite = src.Sprite
	p.mu.Unlock()

	log := logger.From(ctx, p.log).With(zap.Stringer("layer", id))
	log.Debug("duplicating layer")
	dup, err := layer.Duplicate(ctx, p.doc.Provider, captured)
	if err != nil {
		log.Warn("duplicate failed", zap.Error(err))
		return p.Snapshot(), err
	}
	return p.run(func() (history.Command, error) {
		z, ok := p.doc.Layers.Index(id)
		if !ok {
			log.Debug("duplicate source deleted, discarding copy")
			dup.Sprite.Destroy()
			return nil, fmt.Errorf("duplicate source %s: %w", id, layer.ErrNotFound)
		}
		return command.NewDuplicate(p.doc, dup, z+1), nil
	}, p.selectLayer(dup.ID))
}

// RemoveBackground sends an image layer to the remote background remover
// and replaces its pixels with the result.
func (p *Project) RemoveBackground(ctx context.Context, id layer.ID) (Snapshot, error) {
	if p.remover == nil {
		return p.Snapshot(), remote.ErrUnavailable
	}
	p.mu.Lock()
	src, err := p.image(id)
	if err != nil {
		snap := p.snapshot()
		p.mu.Unlock()
		return snap, ignoreNotFound(err)
	}
	data := src.Data.Clone()
	p.mu.Unlock()

	log := logger.From(ctx, p.log).With(zap.Stringer("layer", id))
	log.Debug("removing background", zap.Int("bytes", len(data.Source)))
	out, err := p.remover.RemoveBackground(ctx, data)
	if err != nil {
		log.Warn("background removal failed", zap.Error(err))
		return p.Snapshot(), fmt.Errorf("remove background: %w", err)
	}
	return p.run(func() (history.Command, error) {
		return command.NewReplaceImage(p.doc, id, out, "Remove Background")
	})
}

// Compress returns a compressed encoding of an image layer's pixels. The
// project is not changed.
func (p *Project) Compress(ctx context.Context, id layer.ID, quality int) ([]byte, error) {
	if p.compressor == nil {
		return nil, remote.ErrUnavailable
	}
	p.mu.Lock()
	src, err := p.image(id)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	data := src.Data.Clone()
	p.mu.Unlock()

	out, err := p.compressor.Compress(ctx, data, quality)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return out, nil
}

// ExtractText recognizes text in an image layer and adds it as a text
// layer above the image, placed over the recognized words.
func (p *Project) ExtractText(ctx context.Context, id layer.ID) (Snapshot, error) {
	if p.recognizer == nil {
		return p.Snapshot(), remote.ErrUnavailable
	}
	p.mu.Lock()
	src, err := p.image(id)
	if err != nil {
		snap := p.snapshot()
		p.mu.Unlock()
		return snap, ignoreNotFound(err)
	}
	encoded := src.Data.Clone().Source
	p.mu.Unlock()

	log := logger.From(ctx, p.log).With(zap.Stringer("layer", id))
	words, err := p.recognizer.Words(ctx, encoded)
	if err != nil {
		log.Warn("text extraction failed", zap.Error(err))
		return p.Snapshot(), fmt.Errorf("extract text: %w", err)
	}
	text := ocr.Text(words)
	log.Debug("text recognized", zap.Int("words", len(words)))
	if text == "" {
		return p.Snapshot(), nil
	}
	bounds := ocr.Bounds(words)

	var txt *layer.Text
	return p.run(func() (history.Command, error) {
		img, err := p.image(id)
		if err != nil {
			return nil, err
		}
		z, _ := p.doc.Layers.Index(id)
		t := img.Transform()
		txt = layer.NewText(text, t.Apply(geometry.NewPoint2D(float64(bounds.Min.X), float64(bounds.Min.Y))))
		txt.FontSize = lineHeight(words) * img.Scale.Y
		return command.NewInsert(p.doc, txt, z+1), nil
	}, func() { p.doc.Layers = p.doc.Layers.WithTarget(txt.ID) })
}

// lineHeight is the mean word height in pixels.
func lineHeight(words []ocr.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	sum := 0
	for _, w := range words {
		sum += w.Bounds.Dy()
	}
	return float64(sum) / float64(len(words))
}

// Export flattens the visible layers into a canvas-sized raster.
func (p *Project) Export(filter composite.FilterFunc) (*image.RGBA, error) {
	p.mu.Lock()
	layers := p.doc.Layers.Layers()
	for i, l := range layers {
		layers[i] = l.Clone()
	}
	canvas := p.doc.Canvas
	p.mu.Unlock()
	return composite.NewComposite(int(canvas.Width), int(canvas.Height), filter, p.log).Render(layers)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, layer.ErrNotFound) {
		return nil
	}
	return err
}
