package project

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"photo-editor/internal/imaging"
	"photo-editor/internal/layer"
	"photo-editor/internal/logger"
	"photo-editor/internal/ocr"
	"photo-editor/internal/remote"
	"photo-editor/internal/render"
	"photo-editor/internal/render/memrender"
	"photo-editor/pkg/geometry"
)

var blue = color.RGBA{0, 0, 255, 255}

type recognizerFunc func(ctx context.Context, encoded []byte) ([]ocr.Word, error)

func (f recognizerFunc) Words(ctx context.Context, encoded []byte) ([]ocr.Word, error) {
	return f(ctx, encoded)
}

func newProject(t *testing.T, opts Options) (*Project, *memrender.Provider) {
	t.Helper()
	p := memrender.New()
	proj, err := New("test", geometry.NewSize(800, 600), p, opts)
	require.NoError(t, err)
	return proj, p
}

func pngData(t *testing.T, name string, w, h int) imaging.ImageData {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = blue.R, blue.G, blue.B, blue.A
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data, err := imaging.FromBytes(name, buf.Bytes())
	require.NoError(t, err)
	return data
}

func addImage(t *testing.T, proj *Project, name string) *layer.Image {
	t.Helper()
	img, err := proj.CreateLayer(pngData(t, name, 40, 20))
	require.NoError(t, err)
	_, err = proj.AddLayer(img)
	require.NoError(t, err)
	return img
}

func ids(snap Snapshot) []layer.ID {
	out := make([]layer.ID, len(snap.Layers))
	for i, r := range snap.Layers {
		out[i] = r.ID
	}
	return out
}

func assertDense(t *testing.T, snap Snapshot) {
	t.Helper()
	for i, r := range snap.Layers {
		assert.Equal(t, i, r.ZIndex)
	}
}

func TestNewRejectsEmptyCanvas(t *testing.T) {
	_, err := New("x", geometry.NewSize(0, 100), memrender.New(), Options{})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMoveDeleteUndoScenario(t *testing.T) {
	proj, _ := newProject(t, Options{})
	bg := proj.Snapshot().Layers[0]
	a := addImage(t, proj, "A")

	snap := proj.Snapshot()
	require.Len(t, snap.Layers, 2)
	assert.Equal(t, []layer.ID{bg.ID, a.ID}, ids(snap))

	snap, err := proj.MoveLayerBack(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{a.ID, bg.ID}, ids(snap))
	assertDense(t, snap)
	before := snap.Layers

	snap, err = proj.RemoveLayer(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{bg.ID}, ids(snap))
	assertDense(t, snap)

	snap, err = proj.Undo()
	require.NoError(t, err)
	assert.Equal(t, before, snap.Layers)

	snap, err = proj.Redo()
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{bg.ID}, ids(snap))
}

func TestRemoveBackgroundLayerRefused(t *testing.T) {
	proj, _ := newProject(t, Options{})
	var notices []Notice
	proj.On(EventNotice, func(data any) { notices = append(notices, data.(Notice)) })
	before := proj.Snapshot()

	snap, err := proj.RemoveLayer(before.Layers[0].ID)
	assert.ErrorIs(t, err, ErrProtectedLayer)
	assert.Equal(t, before.Layers, snap.Layers)
	assert.Empty(t, snap.UndoTitles)
	require.Len(t, notices, 1)
	assert.ErrorIs(t, notices[0].Err, ErrProtectedLayer)
}

func TestUnknownLayerIsNoop(t *testing.T) {
	remover := remote.BackgroundRemoverFunc(func(ctx context.Context, img imaging.ImageData) (imaging.ImageData, error) {
		return img, nil
	})
	words := recognizerFunc(func(context.Context, []byte) ([]ocr.Word, error) { return nil, nil })
	proj, _ := newProject(t, Options{Remover: remover, Recognizer: words})
	addImage(t, proj, "A")
	before := proj.Snapshot()

	changed := 0
	proj.On(EventChanged, func(any) { changed++ })

	missing := layer.NewID()
	ctx := context.Background()
	ops := map[string]func() (Snapshot, error){
		"remove":     func() (Snapshot, error) { return proj.RemoveLayer(missing) },
		"hide":       func() (Snapshot, error) { return proj.HideLayer(missing) },
		"show":       func() (Snapshot, error) { return proj.ShowLayer(missing) },
		"front":      func() (Snapshot, error) { return proj.MoveLayerFront(missing) },
		"up":         func() (Snapshot, error) { return proj.MoveLayerUp(missing) },
		"rename":     func() (Snapshot, error) { return proj.RenameLayer(missing, "x") },
		"reset":      func() (Snapshot, error) { return proj.ResetLayer(missing) },
		"opacity":    func() (Snapshot, error) { return proj.SetOpacity(missing, 0.5) },
		"duplicate":  func() (Snapshot, error) { return proj.DuplicateLayer(ctx, missing) },
		"background": func() (Snapshot, error) { return proj.RemoveBackground(ctx, missing) },
		"text":       func() (Snapshot, error) { return proj.ExtractText(ctx, missing) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			snap, err := op()
			require.NoError(t, err)
			assert.Equal(t, before.Layers, snap.Layers)
			assert.Equal(t, before.UndoTitles, snap.UndoTitles)
		})
	}
	assert.Zero(t, changed)
}

func TestAddLayerEmitsSnapshot(t *testing.T) {
	proj, _ := newProject(t, Options{})
	var got []Snapshot
	proj.On(EventChanged, func(data any) { got = append(got, data.(Snapshot)) })

	a := addImage(t, proj, "A")
	require.Len(t, got, 1)
	require.Len(t, got[0].Layers, 2)
	assert.Equal(t, a.ID, got[0].Layers[1].ID)
	require.NotNil(t, got[0].Target)
	assert.Equal(t, a.ID, *got[0].Target)
	assert.Equal(t, []string{"Add Image Layer"}, got[0].UndoTitles)

	// Snapshots are values; later edits do not reach them.
	_, err := proj.RenameLayer(a.ID, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "A", got[0].Layers[1].Name)
	assert.Equal(t, "renamed", got[1].Layers[1].Name)
}

func TestCreateLayerIsCenteredFactory(t *testing.T) {
	proj, _ := newProject(t, Options{})
	img, err := proj.CreateLayer(pngData(t, "A", 40, 20))
	require.NoError(t, err)
	assert.Equal(t, geometry.NewPoint2D(400, 300), img.Position)
	assert.Equal(t, geometry.NewPoint2D(1, 1), img.Scale)
	assert.Len(t, proj.Snapshot().Layers, 1, "factory does not insert")

	_, err = proj.CreateLayer(imaging.ImageData{Name: "empty"})
	assert.ErrorIs(t, err, imaging.ErrEmptyImage)
}

func TestHideShow(t *testing.T) {
	proj, p := newProject(t, Options{})
	a := addImage(t, proj, "A")

	snap, err := proj.HideLayer(a.ID)
	require.NoError(t, err)
	rec, _ := snap.Find(a.ID)
	assert.False(t, rec.Visible)
	assert.False(t, a.Sprite.(*memrender.Node).Visible)

	snap, err = proj.HideLayer(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Add Image Layer", "Hide Layer"}, snap.UndoTitles)

	snap, err = proj.ShowLayer(a.ID)
	require.NoError(t, err)
	rec, _ = snap.Find(a.ID)
	assert.True(t, rec.Visible)
	assert.Equal(t, "Show Layer", snap.UndoTitles[len(snap.UndoTitles)-1])
	assert.Zero(t, p.DoubleDestroys)
}

func TestMoveOperations(t *testing.T) {
	proj, _ := newProject(t, Options{})
	bg := proj.Snapshot().Layers[0].ID
	a := addImage(t, proj, "A")
	b := addImage(t, proj, "B")
	c := addImage(t, proj, "C")

	snap, err := proj.MoveLayerDown(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{bg, a.ID, c.ID, b.ID}, ids(snap))

	snap, err = proj.MoveLayerFront(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{bg, c.ID, b.ID, a.ID}, ids(snap))

	snap, err = proj.MoveLayerBack(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []layer.ID{b.ID, bg, c.ID, a.ID}, ids(snap))
	assertDense(t, snap)

	titles := snap.UndoTitles
	snap, err = proj.MoveLayerUp(a.ID)
	require.NoError(t, err)
	assert.Equal(t, titles, snap.UndoTitles, "moving the top layer up records nothing")
	assert.Equal(t, []string{"Move Layer Down", "Bring to Front", "Send to Back"}, titles[3:])

	root := proj.Root().(*memrender.Node)
	assert.Equal(t, []render.Node{b.Sprite, c.Sprite, a.Sprite}, root.Children())
}

func TestUndoRedoEmptyIsNoop(t *testing.T) {
	proj, _ := newProject(t, Options{})
	changed := 0
	proj.On(EventChanged, func(any) { changed++ })

	_, err := proj.Undo()
	require.NoError(t, err)
	_, err = proj.Redo()
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestRedoClearedByNewCommand(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")
	_, err := proj.RenameLayer(a.ID, "B")
	require.NoError(t, err)

	snap, err := proj.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"Add Image Layer"}, snap.UndoTitles)
	assert.Equal(t, []string{"Rename Layer"}, snap.RedoTitles)

	snap, err = proj.SetOpacity(a.ID, 0.5)
	require.NoError(t, err)
	assert.Empty(t, snap.RedoTitles)
}

func TestHistoryCapDestroysEvictedNode(t *testing.T) {
	proj, p := newProject(t, Options{})
	a := addImage(t, proj, "A")
	b := addImage(t, proj, "B")
	c := addImage(t, proj, "C")
	proj.SetHistoryLimits(2, 2)
	live := p.Live()

	for _, img := range []*layer.Image{a, b, c} {
		_, err := proj.RemoveLayer(img.ID)
		require.NoError(t, err)
	}
	snap := proj.Snapshot()
	assert.Equal(t, []string{"Delete Image Layer", "Delete Image Layer"}, snap.UndoTitles)
	assert.Equal(t, live-1, p.Live(), "evicted delete releases its node")

	for range 3 {
		_, err := proj.Undo()
		require.NoError(t, err)
	}
	snap = proj.Snapshot()
	assert.Equal(t, []layer.ID{snap.Layers[0].ID, b.ID, c.ID}, ids(snap))
	_, ok := snap.Find(a.ID)
	assert.False(t, ok)
	assert.Zero(t, p.DoubleDestroys)
}

func TestSetHistoryLimitsEmitsTrimmedHistory(t *testing.T) {
	proj, _ := newProject(t, Options{})
	for _, name := range []string{"A", "B", "C"} {
		addImage(t, proj, name)
	}
	var got []Snapshot
	proj.On(EventChanged, func(data any) { got = append(got, data.(Snapshot)) })

	snap := proj.SetHistoryLimits(1, 1)
	require.Len(t, got, 1)
	assert.Len(t, got[0].UndoTitles, 1)
	assert.Equal(t, got[0].UndoTitles, snap.UndoTitles)
	assert.Len(t, got[0].Layers, 4)
}

func TestDuplicateLayer(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")
	addImage(t, proj, "B")

	snap, err := proj.DuplicateLayer(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, snap.Layers, 4)
	dup := snap.Layers[2]
	assert.NotEqual(t, a.ID, dup.ID)
	assert.Equal(t, "A copy", dup.Name)
	require.NotNil(t, snap.Target)
	assert.Equal(t, dup.ID, *snap.Target)
	assert.Equal(t, "Duplicate Layer", snap.UndoTitles[len(snap.UndoTitles)-1])

	snap, err = proj.SetOpacity(dup.ID, 0.5)
	require.NoError(t, err)
	orig, _ := snap.Find(a.ID)
	assert.Equal(t, 1.0, orig.Opacity)
	assert.Equal(t, 1.0, a.Sprite.(*memrender.Node).Alpha)
}

func TestDuplicateFailureLeavesLayersUnchanged(t *testing.T) {
	proj, p := newProject(t, Options{})
	a := addImage(t, proj, "A")
	before := proj.Snapshot()
	boom := errors.New("boom")
	p.DuplicateErr = boom

	snap, err := proj.DuplicateLayer(context.Background(), a.ID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before.Layers, snap.Layers)
	assert.Equal(t, before.UndoTitles, snap.UndoTitles)
}

func TestDuplicateDiscardedWhenSourceDeleted(t *testing.T) {
	proj, p := newProject(t, Options{})
	a := addImage(t, proj, "A")
	p.Gate = make(chan struct{})
	p.Waiting = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := proj.DuplicateLayer(context.Background(), a.ID)
		done <- err
	}()
	<-p.Waiting
	_, err := proj.RemoveLayer(a.ID)
	require.NoError(t, err)
	live := p.Live()
	close(p.Gate)
	require.NoError(t, <-done)

	snap := proj.Snapshot()
	assert.Len(t, snap.Layers, 1)
	assert.Equal(t, "Delete Image Layer", snap.UndoTitles[len(snap.UndoTitles)-1])
	assert.Equal(t, live, p.Live(), "discarded copy is destroyed")
}

func TestRemoveBackground(t *testing.T) {
	calls := 0
	remover := remote.BackgroundRemoverFunc(func(ctx context.Context, img imaging.ImageData) (imaging.ImageData, error) {
		calls++
		if calls > 1 {
			return imaging.ImageData{}, remote.ErrUnavailable
		}
		out := img.Clone()
		out.Name = "cut"
		return out, nil
	})
	proj, p := newProject(t, Options{Remover: remover})
	a := addImage(t, proj, "A")
	oldSprite := a.Sprite

	snap, err := proj.RemoveBackground(context.Background(), a.ID)
	require.NoError(t, err)
	rec, _ := snap.Find(a.ID)
	assert.Equal(t, "cut", rec.Image.Data.Name)
	assert.Equal(t, "Remove Background", snap.UndoTitles[len(snap.UndoTitles)-1])
	assert.NotSame(t, oldSprite, a.Sprite)

	snap, err = proj.Undo()
	require.NoError(t, err)
	rec, _ = snap.Find(a.ID)
	assert.Equal(t, "A", rec.Image.Data.Name)
	assert.Same(t, oldSprite, a.Sprite)

	before := proj.Snapshot()
	snap, err = proj.RemoveBackground(context.Background(), a.ID)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.Equal(t, before.Layers, snap.Layers)

	_, err = proj.RemoveBackground(context.Background(), snap.Layers[0].ID)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Zero(t, p.DoubleDestroys)
}

func TestRemoteServicesUnavailable(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")
	ctx := context.Background()

	_, err := proj.RemoveBackground(ctx, a.ID)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	_, err = proj.Compress(ctx, a.ID, 80)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	_, err = proj.ExtractText(ctx, a.ID)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestCompressDoesNotMutate(t *testing.T) {
	compressor := remote.CompressorFunc(func(ctx context.Context, img imaging.ImageData, quality int) ([]byte, error) {
		return []byte(img.Name + ":" + strconv.Itoa(quality)), nil
	})
	proj, _ := newProject(t, Options{Compressor: compressor})
	a := addImage(t, proj, "A")
	before := proj.Snapshot()

	out, err := proj.Compress(context.Background(), a.ID, 75)
	require.NoError(t, err)
	assert.Equal(t, "A:75", string(out))
	assert.Equal(t, before, proj.Snapshot())
}

func TestExtractText(t *testing.T) {
	var words []ocr.Word
	rec := recognizerFunc(func(context.Context, []byte) ([]ocr.Word, error) { return words, nil })
	proj, _ := newProject(t, Options{Recognizer: rec})
	a := addImage(t, proj, "A")
	addImage(t, proj, "B")

	snap, err := proj.ExtractText(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Layers, 3, "no words, no layer")

	words = []ocr.Word{{Text: "HELLO", Bounds: image.Rect(0, 0, 20, 10)}}
	snap, err = proj.ExtractText(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, snap.Layers, 4)
	txt := snap.Layers[2]
	assert.Equal(t, layer.KindText, txt.Kind)
	require.NotNil(t, txt.Text)
	assert.Equal(t, "HELLO", txt.Text.Text)
	assert.InDelta(t, 380, txt.Text.Position.X, 1e-9)
	assert.InDelta(t, 290, txt.Text.Position.Y, 1e-9)
	assert.InDelta(t, 10, txt.Text.FontSize, 1e-9)
	assert.Equal(t, "Add Text Layer", snap.UndoTitles[len(snap.UndoTitles)-1])
}

func TestChangeCanvasDimensions(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")

	_, err := proj.ChangeCanvasDimensions(0, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)

	snap, err := proj.ChangeCanvasDimensions(1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.Settings.Width)
	rec, _ := snap.Find(a.ID)
	assert.Equal(t, geometry.NewPoint2D(500, 500), rec.Image.Position)

	snap, err = proj.Undo()
	require.NoError(t, err)
	assert.Equal(t, 800.0, snap.Settings.Width)
	assert.Equal(t, 600.0, snap.Settings.Height)
}

func TestUpdateAdjustment(t *testing.T) {
	proj, _ := newProject(t, Options{})
	snap, err := proj.NewAdjustmentLayer(layer.KindBrightness)
	require.NoError(t, err)
	id := snap.Layers[1].ID

	snap, err = proj.UpdateAdjustment(id, layer.BrightnessParams{Brightness: 1.5, Contrast: 0.8}, true)
	require.NoError(t, err)
	rec, _ := snap.Find(id)
	require.NotNil(t, rec.Adjustment)
	assert.True(t, rec.Adjustment.ClipToBelow)
	assert.Equal(t, 1.5, rec.Adjustment.Brightness.Brightness)

	snap, err = proj.ResetLayer(id)
	require.NoError(t, err)
	rec, _ = snap.Find(id)
	assert.False(t, rec.Adjustment.ClipToBelow)
	assert.Equal(t, 1.0, rec.Adjustment.Brightness.Brightness)

	_, err = proj.NewAdjustmentLayer(layer.KindImage)
	assert.Error(t, err)
}

func TestLayerAt(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")

	id, ok := proj.LayerAt(geometry.NewPoint2D(400, 300))
	require.True(t, ok)
	assert.Equal(t, a.ID, id)

	_, ok = proj.LayerAt(geometry.NewPoint2D(10, 10))
	assert.False(t, ok)

	_, err := proj.HideLayer(a.ID)
	require.NoError(t, err)
	_, ok = proj.LayerAt(geometry.NewPoint2D(400, 300))
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")

	snap := proj.Deselect()
	assert.Nil(t, snap.Target)
	snap = proj.Select(a.ID)
	require.NotNil(t, snap.Target)
	assert.Equal(t, a.ID, *snap.Target)
	snap = proj.Select(layer.NewID())
	assert.Nil(t, snap.Target)
}

func TestExport(t *testing.T) {
	proj, _ := newProject(t, Options{})
	addImage(t, proj, "A")

	out, err := proj.Export(nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 600), out.Bounds())
	assert.Equal(t, blue, out.RGBAAt(400, 300))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(10, 10))
}

func TestSaveLoad(t *testing.T) {
	proj, _ := newProject(t, Options{})
	a := addImage(t, proj, "A")
	_, err := proj.NewAdjustmentLayer(layer.KindSaturation)
	require.NoError(t, err)
	_, err = proj.MoveLayerBack(a.ID)
	require.NoError(t, err)
	proj.Select(a.ID)

	path := filepath.Join(t.TempDir(), "test.photoproj")
	require.NoError(t, proj.Save(path))

	p := memrender.New()
	loaded, err := Load(path, p, Options{})
	require.NoError(t, err)

	want, got := proj.Snapshot(), loaded.Snapshot()
	assert.Equal(t, want.Layers, got.Layers)
	assert.Equal(t, want.Target, got.Target)
	assert.Equal(t, "test", got.Settings.Name)
	assert.Empty(t, got.UndoTitles)
	assert.Equal(t, 2, loaded.Root().Len())
	assert.Equal(t, 3, p.Live(), "root, sprite and adjustment container")
}

func TestLoadAddsMissingBackground(t *testing.T) {
	f := &File{Version: FileVersion}
	img := layer.NewImage(imaging.ImageData{Name: "A", Source: []byte("A"), Width: 4, Height: 4}, geometry.NewPoint2D(2, 2))
	f.Layers = layer.ToRecords([]layer.Layer{img})

	layers, err := f.BuildLayers()
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, layer.KindBackground, layers[0].Kind())
	assert.Equal(t, img.ID, layers[1].Common().ID)
}

func TestLoadDropsDuplicateIDs(t *testing.T) {
	img := layer.NewImage(pngData(t, "A", 40, 20), geometry.NewPoint2D(20, 10))
	f := File{
		Version:  FileVersion,
		Settings: Settings{Name: "dup", Width: 100, Height: 100},
		Layers:   layer.ToRecords([]layer.Layer{layer.NewBackground(), img, img.Clone()}),
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dup.photoproj")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p := memrender.New()
	proj, err := Load(path, p, Options{})
	require.NoError(t, err)

	snap := proj.Snapshot()
	require.Len(t, snap.Layers, 2)
	assert.Equal(t, img.ID, snap.Layers[1].ID)
	root := proj.Root().(*memrender.Node)
	require.Equal(t, 1, root.Len())
	assert.False(t, root.Children()[0].(*memrender.Node).Destroyed)
	assert.Equal(t, 2, p.Live(), "root and one sprite")
}

func TestAddBackgroundRefused(t *testing.T) {
	proj, _ := newProject(t, Options{})
	var changed int
	proj.On(EventChanged, func(any) { changed++ })

	snap, err := proj.AddLayer(layer.NewBackground())
	assert.ErrorIs(t, err, ErrBackgroundExists)
	require.Len(t, snap.Layers, 1)
	assert.Empty(t, snap.UndoTitles)
	assert.Zero(t, changed)
}

func TestAsyncOpsLogToContextLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := logger.NewContext(context.Background(), zap.New(core))

	remover := remote.BackgroundRemoverFunc(func(context.Context, imaging.ImageData) (imaging.ImageData, error) {
		return imaging.ImageData{}, errors.New("service down")
	})
	proj, _ := newProject(t, Options{Remover: remover})
	a := addImage(t, proj, "A")

	_, err := proj.RemoveBackground(ctx, a.ID)
	require.Error(t, err)
	failed := logs.FilterMessage("background removal failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID.String(), failed[0].ContextMap()["layer"])
}
