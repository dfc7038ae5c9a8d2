package layer

import (
	"fmt"
)

// Record is the plain structural form of a layer used for snapshots and
// project files. It never contains render handles.
type Record struct {
	Kind Kind `json:"kind"`
	Base

	Background *BackgroundProps  `json:"background,omitempty"`
	Image      *ImageProps       `json:"image,omitempty"`
	Adjustment *AdjustmentRecord `json:"adjustment,omitempty"`
	Text       *TextProps        `json:"text,omitempty"`
	Shape      *ShapeProps       `json:"shape,omitempty"`
}

// AdjustmentRecord stores an adjustment layer's fields. Exactly one of the
// parameter blocks is set, matching the record's Kind.
type AdjustmentRecord struct {
	ClipToBelow bool              `json:"clipToBelow"`
	Brightness  *BrightnessParams `json:"brightness,omitempty"`
	Saturation  *SaturationParams `json:"saturation,omitempty"`
	Bloom       *BloomParams      `json:"bloom,omitempty"`
	DropShadow  *DropShadowParams `json:"dropShadow,omitempty"`
}

// ToRecord converts a layer to its structural form. The record shares no
// mutable memory with l.
func ToRecord(l Layer) Record {
	c := l.Clone()
	r := Record{Kind: c.Kind(), Base: *c.Common()}
	switch v := c.(type) {
	case *Background:
		r.Background = &v.BackgroundProps
	case *Image:
		r.Image = &v.ImageProps
		for i := range r.Image.Effects {
			r.Image.Effects[i].Filter = nil
		}
	case *Adjustment:
		ar := &AdjustmentRecord{ClipToBelow: v.ClipToBelow}
		switch p := v.Params.(type) {
		case BrightnessParams:
			ar.Brightness = &p
		case SaturationParams:
			ar.Saturation = &p
		case BloomParams:
			ar.Bloom = &p
		case DropShadowParams:
			ar.DropShadow = &p
		default:
			panic(fmt.Sprintf("layer: unhandled params %T", v.Params))
		}
		r.Adjustment = ar
	case *Text:
		r.Text = &v.TextProps
	case *Shape:
		r.Shape = &v.ShapeProps
	default:
		panic(fmt.Sprintf("layer: unhandled variant %T", l))
	}
	return r
}

// ToRecords converts layers in order.
func ToRecords(layers []Layer) []Record {
	out := make([]Record, len(layers))
	for i, l := range layers {
		out[i] = ToRecord(l)
	}
	return out
}

// FromRecord rebuilds a layer from its structural form. Render handles are
// left unset; the caller binds new ones.
func FromRecord(r Record) (Layer, error) {
	var l Layer
	switch r.Kind {
	case KindBackground:
		if r.Background == nil {
			return nil, fmt.Errorf("layer %s: missing background fields", r.ID)
		}
		l = &Background{Base: r.Base, BackgroundProps: *r.Background}
	case KindImage:
		if r.Image == nil {
			return nil, fmt.Errorf("layer %s: missing image fields", r.ID)
		}
		l = &Image{Base: r.Base, ImageProps: *r.Image}
	case KindBrightness, KindSaturation, KindBloom, KindDropShadow:
		if r.Adjustment == nil {
			return nil, fmt.Errorf("layer %s: missing adjustment fields", r.ID)
		}
		p, err := r.Adjustment.params(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", r.ID, err)
		}
		l = &Adjustment{Base: r.Base, ClipToBelow: r.Adjustment.ClipToBelow, Params: p}
	case KindText:
		if r.Text == nil {
			return nil, fmt.Errorf("layer %s: missing text fields", r.ID)
		}
		l = &Text{Base: r.Base, TextProps: *r.Text}
	case KindShape:
		if r.Shape == nil {
			return nil, fmt.Errorf("layer %s: missing shape fields", r.ID)
		}
		l = &Shape{Base: r.Base, ShapeProps: *r.Shape}
	default:
		return nil, fmt.Errorf("layer %s: unknown kind %d", r.ID, int(r.Kind))
	}
	l.Common().SetOpacity(r.Opacity)
	// Detach from the record's memory.
	return l.Clone(), nil
}

func (ar *AdjustmentRecord) params(kind Kind) (Params, error) {
	var p Params
	switch kind {
	case KindBrightness:
		if ar.Brightness != nil {
			p = *ar.Brightness
		}
	case KindSaturation:
		if ar.Saturation != nil {
			p = *ar.Saturation
		}
	case KindBloom:
		if ar.Bloom != nil {
			p = *ar.Bloom
		}
	case KindDropShadow:
		if ar.DropShadow != nil {
			p = *ar.DropShadow
		}
	}
	if p == nil {
		return nil, fmt.Errorf("missing %s parameters", kind)
	}
	return p, nil
}
