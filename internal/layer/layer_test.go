package layer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-editor/internal/imaging"
	"photo-editor/internal/render"
	"photo-editor/internal/render/memrender"
	"photo-editor/pkg/geometry"
)

func TestKindText(t *testing.T) {
	for k := KindBackground; k <= KindShape; k++ {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}
	_, err := ParseKind("sepia")
	assert.Error(t, err)
}

func TestKindIsAdjustment(t *testing.T) {
	assert.True(t, KindBloom.IsAdjustment())
	assert.True(t, KindDropShadow.IsAdjustment())
	assert.False(t, KindImage.IsAdjustment())
	assert.False(t, KindBackground.IsAdjustment())
}

func TestNewAdjustmentRejectsNonAdjustment(t *testing.T) {
	_, err := NewAdjustment(KindImage)
	assert.Error(t, err)

	adj, err := NewAdjustment(KindBloom)
	require.NoError(t, err)
	assert.Equal(t, KindBloom, adj.Kind())
	assert.Equal(t, "Bloom", adj.Name)
}

func TestOpacityClamped(t *testing.T) {
	l := newTestImage("a")
	l.SetOpacity(1.7)
	assert.Equal(t, 1.0, l.Opacity)
	l.SetOpacity(-2)
	assert.Equal(t, 0.0, l.Opacity)
}

func TestCloneSharesNothing(t *testing.T) {
	img := NewImage(imaging.ImageData{Name: "a", Source: []byte{1}, Width: 1, Height: 1}, geometry.Point2D{})
	img.Effects = []Effect{{Name: "glow", Spec: render.FilterSpec{Kind: "bloom", Values: map[string]float64{"blur": 1}}}}
	img.Sprite = memrender.New().NewContainer()

	c := img.Clone().(*Image)
	c.Data.Source[0] = 9
	c.Effects[0].Spec.Values["blur"] = 5

	assert.Equal(t, byte(1), img.Data.Source[0])
	assert.Equal(t, 1.0, img.Effects[0].Spec.Values["blur"])
	assert.Nil(t, c.Sprite)
	assert.Equal(t, img.ID, c.ID)
}

func TestRecordRoundTrip(t *testing.T) {
	adj, err := NewAdjustment(KindDropShadow)
	require.NoError(t, err)
	adj.ClipToBelow = true
	poly := NewShape(ShapePolygon, geometry.Rect{})
	poly.Points = []geometry.Point2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}}

	layers := []Layer{
		NewBackground(),
		NewImage(imaging.ImageData{Name: "a", Width: 3, Height: 2}, geometry.Point2D{X: 5, Y: 5}),
		adj,
		NewText("hello", geometry.Point2D{X: 1, Y: 2}),
		poly,
	}
	Normalize(layers)

	data, err := json.Marshal(ToRecords(layers))
	require.NoError(t, err)

	var records []Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, len(layers))

	for i, r := range records {
		l, err := FromRecord(r)
		require.NoError(t, err)
		assert.Equal(t, ToRecord(layers[i]), ToRecord(l))
		assert.Nil(t, l.Node())
	}
}

func TestFromRecordMissingFields(t *testing.T) {
	_, err := FromRecord(Record{Kind: KindImage})
	assert.Error(t, err)
	_, err = FromRecord(Record{Kind: KindBloom, Adjustment: &AdjustmentRecord{}})
	assert.Error(t, err)
}

func TestResetAdjustment(t *testing.T) {
	adj, err := NewAdjustment(KindBrightness)
	require.NoError(t, err)
	adj.Params = BrightnessParams{Brightness: 2, Contrast: 0.3}
	adj.Opacity = 0.2

	Reset(adj, geometry.NewSize(100, 100))
	assert.Equal(t, BrightnessParams{Brightness: 1, Contrast: 1}, adj.Params)
	assert.Equal(t, 1.0, adj.Opacity)
}

func TestResetImageRecenters(t *testing.T) {
	img := newTestImage("a")
	img.Position = geometry.Point2D{X: 3, Y: 3}
	img.Rotation = 45
	Reset(img, geometry.NewSize(200, 100))
	assert.Equal(t, geometry.Point2D{X: 100, Y: 50}, img.Position)
	assert.Zero(t, img.Rotation)
}

func TestImageContains(t *testing.T) {
	img := NewImage(imaging.ImageData{Width: 20, Height: 10}, geometry.Point2D{X: 50, Y: 50})
	assert.True(t, img.Contains(geometry.Point2D{X: 50, Y: 50}))
	assert.True(t, img.Contains(geometry.Point2D{X: 41, Y: 46}))
	assert.False(t, img.Contains(geometry.Point2D{X: 50, Y: 60}))

	img.Rotation = 90
	assert.True(t, img.Contains(geometry.Point2D{X: 50, Y: 58}))
}

func TestShapeContains(t *testing.T) {
	ellipse := NewShape(ShapeEllipse, geometry.NewRect(0, 0, 10, 4))
	assert.True(t, ellipse.Contains(geometry.Point2D{X: 5, Y: 2}))
	assert.False(t, ellipse.Contains(geometry.Point2D{X: 0.5, Y: 0.5}))
}

func TestDuplicateIsIndependent(t *testing.T) {
	p := memrender.New()
	src := NewImage(imaging.ImageData{Name: "a", Width: 4, Height: 4}, geometry.Point2D{})
	src.Effects = []Effect{{Name: "shadow", Spec: render.FilterSpec{Kind: "dropShadow"}}}
	sprite, err := p.NewSprite(src.Data)
	require.NoError(t, err)
	src.Sprite = sprite
	require.NoError(t, BindEffects(p, src))

	dup, err := Duplicate(context.Background(), p, src)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.NotSame(t, src.Sprite, dup.Sprite)
	assert.NotSame(t, src.Effects[0].Filter, dup.Effects[0].Filter)

	dup.Sprite.SetPosition(geometry.Point2D{X: 9, Y: 9})
	assert.Equal(t, geometry.Point2D{}, src.Sprite.(*memrender.Node).Position)
}

func TestDuplicateFailure(t *testing.T) {
	p := memrender.New()
	p.DuplicateErr = errors.New("gpu lost")
	src := newTestImage("a")
	sprite, err := p.NewSprite(src.Data)
	require.NoError(t, err)
	src.Sprite = sprite

	_, err = Duplicate(context.Background(), p, src)
	assert.ErrorIs(t, err, p.DuplicateErr)
	assert.Equal(t, 1, p.Live())

	_, err = Duplicate(context.Background(), p, newTestImage("unbound"))
	assert.ErrorIs(t, err, render.ErrNoNode)
}

func TestDuplicateCancelled(t *testing.T) {
	p := memrender.New()
	p.Gate = make(chan struct{})
	src := newTestImage("a")
	sprite, err := p.NewSprite(src.Data)
	require.NoError(t, err)
	src.Sprite = sprite

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Duplicate(ctx, p, src)
	assert.ErrorIs(t, err, context.Canceled)
}
