package layer

import (
	"fmt"

	"photo-editor/internal/render"
)

// Params is the closed set of adjustment parameter blocks.
type Params interface {
	Kind() Kind
	Title() string
	// FilterSpec describes the renderer filter these parameters configure.
	FilterSpec() render.FilterSpec

	params()
}

// BrightnessParams scale brightness and contrast; 1 leaves the image unchanged.
type BrightnessParams struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

func (BrightnessParams) Kind() Kind    { return KindBrightness }
func (BrightnessParams) Title() string { return "Brightness" }
func (BrightnessParams) params()       {}

func (p BrightnessParams) FilterSpec() render.FilterSpec {
	return render.FilterSpec{
		Kind:   KindBrightness.String(),
		Values: map[string]float64{"brightness": p.Brightness, "contrast": p.Contrast},
	}
}

// SaturationParams shift saturation (-1..1) and hue (degrees).
type SaturationParams struct {
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
}

func (SaturationParams) Kind() Kind    { return KindSaturation }
func (SaturationParams) Title() string { return "Saturation" }
func (SaturationParams) params()       {}

func (p SaturationParams) FilterSpec() render.FilterSpec {
	return render.FilterSpec{
		Kind:   KindSaturation.String(),
		Values: map[string]float64{"saturation": p.Saturation, "hue": p.Hue},
	}
}

// BloomParams configure a glow around bright areas.
type BloomParams struct {
	Blur       float64 `json:"blur"`
	Threshold  float64 `json:"threshold"`
	Brightness float64 `json:"brightness"`
	BloomScale float64 `json:"bloomScale"`
	Quality    int     `json:"quality"`
}

func (BloomParams) Kind() Kind    { return KindBloom }
func (BloomParams) Title() string { return "Bloom" }
func (BloomParams) params()       {}

func (p BloomParams) FilterSpec() render.FilterSpec {
	return render.FilterSpec{
		Kind: KindBloom.String(),
		Values: map[string]float64{
			"blur":       p.Blur,
			"threshold":  p.Threshold,
			"brightness": p.Brightness,
			"bloomScale": p.BloomScale,
			"quality":    float64(p.Quality),
		},
	}
}

// DropShadowParams configure a shadow cast by the layers below.
type DropShadowParams struct {
	Blur       float64 `json:"blur"`
	Opacity    float64 `json:"opacity"`
	OffsetX    float64 `json:"offsetX"`
	OffsetY    float64 `json:"offsetY"`
	Color      string  `json:"color"`
	ShadowOnly bool    `json:"shadowOnly"`
	Quality    int     `json:"quality"`
}

func (DropShadowParams) Kind() Kind    { return KindDropShadow }
func (DropShadowParams) Title() string { return "Drop Shadow" }
func (DropShadowParams) params()       {}

func (p DropShadowParams) FilterSpec() render.FilterSpec {
	return render.FilterSpec{
		Kind: KindDropShadow.String(),
		Values: map[string]float64{
			"blur":    p.Blur,
			"opacity": p.Opacity,
			"offsetX": p.OffsetX,
			"offsetY": p.OffsetY,
			"quality": float64(p.Quality),
		},
		Flags: map[string]bool{"shadowOnly": p.ShadowOnly},
		Color: p.Color,
	}
}

// DefaultParams returns the neutral parameters for an adjustment kind.
func DefaultParams(kind Kind) (Params, error) {
	switch kind {
	case KindBrightness:
		return BrightnessParams{Brightness: 1, Contrast: 1}, nil
	case KindSaturation:
		return SaturationParams{}, nil
	case KindBloom:
		return BloomParams{Blur: 8, Threshold: 0.5, Brightness: 1, BloomScale: 1, Quality: 4}, nil
	case KindDropShadow:
		return DropShadowParams{Blur: 2, Opacity: 1, OffsetX: 4, OffsetY: 4, Color: "#000000", Quality: 3}, nil
	case KindBackground, KindImage, KindText, KindShape:
		return nil, fmt.Errorf("%s is not an adjustment kind", kind)
	default:
		return nil, fmt.Errorf("unknown layer kind %d", int(kind))
	}
}
