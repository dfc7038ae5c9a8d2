package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-editor/internal/command"
	"photo-editor/internal/history"
	"photo-editor/internal/imaging"
	"photo-editor/internal/layer"
	"photo-editor/internal/render"
	"photo-editor/internal/render/memrender"
	"photo-editor/pkg/geometry"
)

func newDoc(t *testing.T) (*command.Document, *memrender.Provider) {
	t.Helper()
	p := memrender.New()
	return command.NewDocument(geometry.NewSize(800, 600), p, nil), p
}

func testImage(name string) *layer.Image {
	data := imaging.ImageData{Name: name, Source: []byte(name), Width: 40, Height: 20}
	return layer.NewImage(data, geometry.NewPoint2D(400, 300))
}

func records(doc *command.Document) []layer.Record {
	return layer.ToRecords(doc.Layers.Layers())
}

func children(doc *command.Document) []render.Node {
	return doc.Root.(*memrender.Node).Children()
}

func zIndices(doc *command.Document) []int {
	var out []int
	for _, l := range doc.Layers.Layers() {
		out = append(out, l.Common().ZIndex)
	}
	return out
}

func add(t *testing.T, doc *command.Document, l layer.Layer) {
	t.Helper()
	require.NoError(t, command.NewAdd(doc, l).Execute())
}

func TestMoveDeleteUndoRestoresExactly(t *testing.T) {
	doc, _ := newDoc(t)
	bg, _ := doc.Layers.Background()
	a := testImage("a")
	add(t, doc, a)

	mv, ok, err := command.NewMove(doc, a.ID, 0, "Move Layer to Back")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mv.Execute())
	assert.Equal(t, a.ID, doc.Layers.At(0).Common().ID)
	assert.Equal(t, bg.ID, doc.Layers.At(1).Common().ID)

	before := records(doc)
	node := a.Sprite

	del, err := command.NewDelete(doc, a.ID)
	require.NoError(t, err)
	require.NoError(t, del.Execute())
	assert.Equal(t, 1, doc.Layers.Len())
	assert.Empty(t, children(doc))
	assert.Equal(t, render.OwnerCommand, doc.Arena.Owner(a.ID))

	require.NoError(t, del.Undo())
	assert.Equal(t, before, records(doc))
	assert.Same(t, node, a.Sprite, "undo re-attaches the original node")
	assert.Equal(t, []render.Node{node}, children(doc))
	assert.Equal(t, render.OwnerLayer, doc.Arena.Owner(a.ID))
	assert.Equal(t, []int{0, 1}, zIndices(doc))
}

func TestDeleteBackgroundRefused(t *testing.T) {
	doc, _ := newDoc(t)
	bg, _ := doc.Layers.Background()
	before := records(doc)

	cmd, err := command.NewDelete(doc, bg.ID)
	assert.ErrorIs(t, err, command.ErrProtectedLayer)
	assert.Nil(t, cmd)
	assert.Equal(t, before, records(doc))
}

func TestInsertSecondBackgroundRefused(t *testing.T) {
	doc, _ := newDoc(t)
	before := records(doc)

	err := command.NewAdd(doc, layer.NewBackground()).Execute()
	assert.ErrorIs(t, err, command.ErrBackgroundExists)
	assert.Equal(t, before, records(doc))
	assert.Len(t, doc.Layers.Layers(), 1)
}

func TestInsertDuplicateIDRefused(t *testing.T) {
	doc, p := newDoc(t)
	a := testImage("A")
	add(t, doc, a)
	before, live := records(doc), p.Live()

	err := command.NewAdd(doc, a.Clone()).Execute()
	assert.ErrorIs(t, err, command.ErrDuplicateLayer)
	assert.Equal(t, before, records(doc))
	assert.Equal(t, live, p.Live(), "the refused copy's node is destroyed")
}

func TestRestoreRejectsDuplicateIDs(t *testing.T) {
	doc, p := newDoc(t)
	a := testImage("A")
	add(t, doc, a)
	before, live := records(doc), p.Live()

	dup := testImage("B")
	err := doc.Restore([]layer.Layer{layer.NewBackground(), dup, dup.Clone()})
	assert.ErrorIs(t, err, command.ErrDuplicateLayer)
	assert.Equal(t, before, records(doc))
	assert.Equal(t, live, p.Live(), "nothing is bound")
	assert.Nil(t, dup.Sprite)
	for _, n := range children(doc) {
		assert.False(t, n.(*memrender.Node).Destroyed)
	}
}

func TestDeleteUnknownLayer(t *testing.T) {
	doc, _ := newDoc(t)
	_, err := command.NewDelete(doc, layer.NewID())
	assert.ErrorIs(t, err, layer.ErrNotFound)
}

func TestDeleteTitles(t *testing.T) {
	doc, _ := newDoc(t)
	adj, err := layer.NewAdjustment(layer.KindDropShadow)
	require.NoError(t, err)
	txt := layer.NewText("hello", geometry.NewPoint2D(1, 1))
	shp := layer.NewShape(layer.ShapeRect, geometry.NewRect(0, 0, 10, 10))
	img := testImage("a")
	for _, l := range []layer.Layer{adj, txt, shp, img} {
		add(t, doc, l)
	}

	tests := []struct {
		id    layer.ID
		title string
	}{
		{adj.ID, "Delete Drop Shadow Layer"},
		{txt.ID, "Delete Text Layer"},
		{shp.ID, "Delete Shape Layer"},
		{img.ID, "Delete Image Layer"},
	}
	for _, tt := range tests {
		cmd, err := command.NewDelete(doc, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.title, cmd.Title())
	}
}

func TestDeleteReleaseOwnership(t *testing.T) {
	doc, p := newDoc(t)
	a := testImage("a")
	add(t, doc, a)
	node := a.Sprite.(*memrender.Node)

	del, err := command.NewDelete(doc, a.ID)
	require.NoError(t, err)
	require.NoError(t, del.Execute())
	require.NoError(t, del.Undo())

	// Undone: the layer owns its node again.
	del.Release()
	assert.False(t, node.Destroyed)

	require.NoError(t, del.Redo())
	del.Release()
	assert.True(t, node.Destroyed)
	assert.Equal(t, 0, doc.Arena.Len())

	del.Release()
	assert.Zero(t, p.DoubleDestroys)
}

func TestDeleteRestoresSelection(t *testing.T) {
	doc, _ := newDoc(t)
	a := testImage("a")
	add(t, doc, a)
	doc.Layers = doc.Layers.WithTarget(a.ID)

	del, err := command.NewDelete(doc, a.ID)
	require.NoError(t, err)
	require.NoError(t, del.Execute())
	_, ok := doc.Layers.Target()
	assert.False(t, ok)

	require.NoError(t, del.Undo())
	target, ok := doc.Layers.Target()
	require.True(t, ok)
	assert.Equal(t, a.ID, target)
}

func TestInsertUndoAndRelease(t *testing.T) {
	doc, p := newDoc(t)
	a := testImage("a")
	ins := command.NewAdd(doc, a)
	require.NoError(t, ins.Execute())
	require.NotNil(t, a.Sprite)
	node := a.Sprite.(*memrender.Node)
	assert.Equal(t, "Add Image Layer", ins.Title())

	ins.Release()
	assert.False(t, node.Destroyed, "live layer keeps its node")

	require.NoError(t, ins.Undo())
	assert.Equal(t, 1, doc.Layers.Len())
	assert.Empty(t, children(doc))

	require.NoError(t, ins.Redo())
	assert.Equal(t, []render.Node{node}, children(doc))

	require.NoError(t, ins.Undo())
	ins.Release()
	assert.True(t, node.Destroyed)
	assert.Equal(t, 1, p.Live(), "only the root remains")
}

func TestInsertAtIndex(t *testing.T) {
	doc, _ := newDoc(t)
	a, b := testImage("a"), testImage("b")
	add(t, doc, a)
	require.NoError(t, command.NewInsert(doc, b, 1).Execute())

	assert.Equal(t, b.ID, doc.Layers.At(1).Common().ID)
	assert.Equal(t, []render.Node{b.Sprite, a.Sprite}, children(doc))
	assert.Equal(t, []int{0, 1, 2}, zIndices(doc))
}

func TestInsertEmptyImageFails(t *testing.T) {
	doc, p := newDoc(t)
	empty := layer.NewImage(imaging.ImageData{Name: "x"}, geometry.Point2D{})
	err := command.NewAdd(doc, empty).Execute()
	assert.Error(t, err)
	assert.Equal(t, 1, doc.Layers.Len())
	assert.Equal(t, 1, p.Live())
}

func TestEditRoundTrips(t *testing.T) {
	doc, _ := newDoc(t)
	a := testImage("a")
	adj, err := layer.NewAdjustment(layer.KindBrightness)
	require.NoError(t, err)
	add(t, doc, a)
	add(t, doc, adj)

	edits := []func() (*command.Edit, error){
		func() (*command.Edit, error) { return command.Rename(doc, a.ID, "renamed") },
		func() (*command.Edit, error) { return command.SetVisible(doc, a.ID, false) },
		func() (*command.Edit, error) { return command.SetOpacity(doc, a.ID, 0.25) },
		func() (*command.Edit, error) {
			return command.Transform(doc, a.ID, geometry.NewPoint2D(10, 20), geometry.NewPoint2D(2, 2), 45)
		},
		func() (*command.Edit, error) {
			return command.SetParams(doc, adj.ID, layer.BrightnessParams{Brightness: 1.4, Contrast: 0.8}, true)
		},
		func() (*command.Edit, error) {
			return command.SetEffects(doc, a.ID, []layer.Effect{{Name: "blur", Spec: render.FilterSpec{Kind: "blur"}}})
		},
		func() (*command.Edit, error) { return command.SetBackground(doc, "#101010", true) },
		func() (*command.Edit, error) { return command.Reset(doc, a.ID) },
	}
	for _, build := range edits {
		cmd, err := build()
		require.NoError(t, err)
		before := records(doc)

		require.NoError(t, cmd.Execute())
		after := records(doc)
		assert.NotEqual(t, before, after, cmd.Title())

		require.NoError(t, cmd.Undo())
		assert.Equal(t, before, records(doc), cmd.Title())

		require.NoError(t, cmd.Redo())
		assert.Equal(t, after, records(doc), cmd.Title())
	}

	assert.Equal(t, 1.0, a.Opacity)
	node := a.Sprite.(*memrender.Node)
	assert.Equal(t, a.Position, node.Position)
	assert.False(t, node.Visible)
}

func TestEditPushesToNode(t *testing.T) {
	doc, _ := newDoc(t)
	adj, err := layer.NewAdjustment(layer.KindSaturation)
	require.NoError(t, err)
	add(t, doc, adj)

	cmd, err := command.SetParams(doc, adj.ID, layer.SaturationParams{Saturation: 0.5}, false)
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())

	node := adj.Container.(*memrender.Node)
	require.Len(t, node.Filters, 1)
	spec := node.Filters[0].(*memrender.Filter).Spec
	assert.Equal(t, adj.Params.FilterSpec(), spec)
}

func TestSetParamsRejectsWrongKind(t *testing.T) {
	doc, _ := newDoc(t)
	adj, err := layer.NewAdjustment(layer.KindBloom)
	require.NoError(t, err)
	a := testImage("a")
	add(t, doc, adj)
	add(t, doc, a)

	_, err = command.SetParams(doc, adj.ID, layer.SaturationParams{}, false)
	assert.Error(t, err)
	_, err = command.SetParams(doc, a.ID, layer.SaturationParams{}, false)
	assert.Error(t, err)
}

func TestMoveNoop(t *testing.T) {
	doc, _ := newDoc(t)
	a := testImage("a")
	add(t, doc, a)

	_, ok, err := command.NewMove(doc, a.ID, 1, "Move Layer")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = command.NewMove(doc, a.ID, 99, "Move Layer")
	require.NoError(t, err)
	assert.False(t, ok, "clamped to the current top")

	_, _, err = command.NewMove(doc, layer.NewID(), 0, "Move Layer")
	assert.ErrorIs(t, err, layer.ErrNotFound)
}

func TestResizeCanvas(t *testing.T) {
	doc, _ := newDoc(t)
	a := testImage("a")
	add(t, doc, a)
	txt := layer.NewText("t", geometry.NewPoint2D(0, 0))
	add(t, doc, txt)
	rect := layer.NewShape(layer.ShapeRect, geometry.NewRect(10, 20, 30, 40))
	add(t, doc, rect)
	poly := layer.NewShape(layer.ShapePolygon, geometry.NewRect(0, 0, 10, 10))
	poly.Points = []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}}
	add(t, doc, poly)

	_, err := command.NewResizeCanvas(doc, geometry.NewSize(0, 10))
	assert.ErrorIs(t, err, command.ErrInvalidSize)

	cmd, err := command.NewResizeCanvas(doc, geometry.NewSize(1000, 1000))
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, geometry.NewSize(1000, 1000), doc.Canvas)
	assert.Equal(t, geometry.NewPoint2D(500, 500), a.Position)
	assert.Equal(t, geometry.NewPoint2D(100, 200), txt.Position)
	assert.Equal(t, a.Position, a.Sprite.(*memrender.Node).Position)
	assert.Equal(t, geometry.NewRect(110, 220, 30, 40), rect.Bounds)
	assert.Equal(t, []geometry.Point2D{{X: 100, Y: 200}, {X: 110, Y: 200}, {X: 105, Y: 210}}, poly.Points)

	require.NoError(t, cmd.Undo())
	assert.Equal(t, geometry.NewSize(800, 600), doc.Canvas)
	assert.Equal(t, geometry.NewPoint2D(400, 300), a.Position)
	assert.Equal(t, geometry.NewPoint2D(0, 0), txt.Position)
	assert.Equal(t, geometry.NewRect(10, 20, 30, 40), rect.Bounds)
	assert.Nil(t, rect.Points)
	assert.Equal(t, []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}}, poly.Points)
}

func TestReplaceImage(t *testing.T) {
	doc, p := newDoc(t)
	a := testImage("a")
	add(t, doc, a)
	orig := a.Sprite.(*memrender.Node)
	origData := a.Data

	cut := imaging.ImageData{Name: "a", Source: []byte("cutout"), Width: 40, Height: 20}
	cmd, err := command.NewReplaceImage(doc, a.ID, cut, "Remove Background")
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, cut, a.Data)
	assert.NotSame(t, orig, a.Sprite)
	assert.Equal(t, []render.Node{a.Sprite}, children(doc))
	got, _ := doc.Arena.Node(a.ID)
	assert.Same(t, a.Sprite, got)

	require.NoError(t, cmd.Undo())
	assert.Equal(t, origData, a.Data)
	assert.Same(t, orig, a.Sprite)

	require.NoError(t, cmd.Redo())
	cmd.Release()
	assert.True(t, orig.Destroyed)
	assert.False(t, a.Sprite.(*memrender.Node).Destroyed)
	assert.Zero(t, p.DoubleDestroys)
}

func TestHistoryCapReleasesDeletedNode(t *testing.T) {
	doc, p := newDoc(t)
	m := history.NewManager(2, 2, nil)
	a, b, c := testImage("a"), testImage("b"), testImage("c")
	for _, l := range []layer.Layer{a, b, c} {
		add(t, doc, l)
	}
	nodeA := a.Sprite.(*memrender.Node)

	for _, l := range []layer.Layer{a, b, c} {
		cmd, err := command.NewDelete(doc, l.Common().ID)
		require.NoError(t, err)
		require.NoError(t, m.Run(cmd))
	}

	assert.True(t, nodeA.Destroyed, "evicted delete releases its node")
	assert.False(t, b.Sprite.(*memrender.Node).Destroyed)

	for m.CanUndo() {
		_, err := m.Undo()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, doc.Layers.Len())
	_, ok := doc.Layers.Find(a.ID)
	assert.False(t, ok)
	assert.Zero(t, p.DoubleDestroys)
}
