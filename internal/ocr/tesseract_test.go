package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	words := []Word{
		{Text: "HELLO", Bounds: image.Rect(0, 0, 50, 10)},
		{Text: "WORLD", Bounds: image.Rect(60, 0, 110, 10)},
		{Text: "again", Bounds: image.Rect(0, 14, 40, 24)},
	}
	assert.Equal(t, "HELLO WORLD\nagain", Text(words))
	assert.Equal(t, image.Rect(0, 0, 110, 24), Bounds(words))
	assert.Equal(t, "", Text(nil))
	assert.True(t, Bounds(nil).Empty())
}
