// Package filter applies adjustment and effect filters to rasters using
// OpenCV. It backs the desktop renderer and the flatten exporter; both
// describe filters as render.FilterSpec values.
package filter

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"photo-editor/internal/render"
	"photo-editor/pkg/colorutil"
	"photo-editor/pkg/geometry"
)

// ErrUnknownFilter is returned for a spec whose kind has no implementation.
var ErrUnknownFilter = errors.New("unknown filter")

// Filter kinds beyond the adjustment layer kinds, used by image effects.
const (
	KindBlur      = "blur"
	KindGrayscale = "grayscale"
	KindInvert    = "invert"
)

type applyFunc func(bgr gocv.Mat, spec render.FilterSpec) gocv.Mat

var colorFilters = map[string]applyFunc{
	"brightness":  brightness,
	"saturation":  saturation,
	"bloom":       bloom,
	KindBlur:      blur,
	KindGrayscale: grayscale,
	KindInvert:    invert,
}

// Known reports whether kind can be applied.
func Known(kind string) bool {
	if kind == "dropShadow" {
		return true
	}
	_, ok := colorFilters[kind]
	return ok
}

// Apply runs the filter described by spec over img and returns a new image
// of the same size. Color filters keep the alpha channel unchanged.
func Apply(img image.Image, spec render.FilterSpec) (*image.RGBA, error) {
	if spec.Kind == "dropShadow" {
		return dropShadow(img, spec)
	}
	fn, ok := colorFilters[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", spec.Kind, ErrUnknownFilter)
	}
	if img.Bounds().Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}

	bgr, alpha, err := toMats(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()
	defer alpha.Close()

	out := fn(bgr, spec)
	defer out.Close()
	return fromMats(out, alpha)
}

// ApplyAll runs specs in order.
func ApplyAll(img image.Image, specs []render.FilterSpec) (*image.RGBA, error) {
	out := toRGBA(img)
	for _, s := range specs {
		next, err := Apply(out, s)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// brightness multiplies brightness and scales contrast around mid-gray.
func brightness(bgr gocv.Mat, spec render.FilterSpec) gocv.Mat {
	b := spec.Value("brightness", 1)
	c := spec.Value("contrast", 1)
	dst := gocv.NewMat()
	bgr.ConvertToWithParams(&dst, gocv.MatTypeCV8UC3, float32(b*c), float32(128*(1-c)))
	return dst
}

// saturation scales the HSV saturation channel by 1+saturation and rotates
// hue by the given number of degrees.
func saturation(bgr gocv.Mat, spec render.FilterSpec) gocv.Mat {
	s := spec.Value("saturation", 0)
	hue := spec.Value("hue", 0)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	ch := gocv.Split(hsv)
	defer closeAll(ch)

	// OpenCV stores 8-bit hue as degrees/2.
	if shift := int(math.Round(hue/2)) % 180; shift != 0 {
		h := ch[0]
		for y := 0; y < h.Rows(); y++ {
			for x := 0; x < h.Cols(); x++ {
				v := (int(h.GetUCharAt(y, x)) + shift + 180) % 180
				h.SetUCharAt(y, x, uint8(v))
			}
		}
	}
	if s != 0 {
		scaled := gocv.NewMat()
		ch[1].ConvertToWithParams(&scaled, gocv.MatTypeCV8UC1, float32(math.Max(0, 1+s)), 0)
		ch[1].Close()
		ch[1] = scaled
	}

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(ch, &merged)

	dst := gocv.NewMat()
	gocv.CvtColor(merged, &dst, gocv.ColorHSVToBGR)
	return dst
}

// bloom adds a blurred copy of the pixels brighter than threshold.
func bloom(bgr gocv.Mat, spec render.FilterSpec) gocv.Mat {
	threshold := spec.Value("threshold", 0.5)
	sigma := spec.Value("blur", 8)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, float32(threshold*255), 255, gocv.ThresholdBinary)

	bright := gocv.NewMatWithSize(bgr.Rows(), bgr.Cols(), gocv.MatTypeCV8UC3)
	defer bright.Close()
	bgr.CopyToWithMask(&bright, mask)

	glow := gocv.NewMat()
	defer glow.Close()
	if sigma > 0 {
		gocv.GaussianBlur(bright, &glow, image.Point{}, sigma, sigma, gocv.BorderDefault)
	} else {
		bright.CopyTo(&glow)
	}

	dst := gocv.NewMat()
	gocv.AddWeighted(bgr, spec.Value("brightness", 1), glow, spec.Value("bloomScale", 1), 0, &dst)
	return dst
}

func blur(bgr gocv.Mat, spec render.FilterSpec) gocv.Mat {
	sigma := spec.Value("strength", 4)
	dst := gocv.NewMat()
	if sigma <= 0 {
		bgr.CopyTo(&dst)
		return dst
	}
	gocv.GaussianBlur(bgr, &dst, image.Point{}, sigma, sigma, gocv.BorderDefault)
	return dst
}

func grayscale(bgr gocv.Mat, _ render.FilterSpec) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	dst := gocv.NewMat()
	gocv.CvtColor(gray, &dst, gocv.ColorGrayToBGR)
	return dst
}

func invert(bgr gocv.Mat, _ render.FilterSpec) gocv.Mat {
	dst := gocv.NewMat()
	gocv.BitwiseNot(bgr, &dst)
	return dst
}

// dropShadow draws a blurred, offset, tinted copy of img's alpha beneath
// img. With the shadowOnly flag the original pixels are left out.
func dropShadow(img image.Image, spec render.FilterSpec) (*image.RGBA, error) {
	src := toRGBA(img)
	b := src.Bounds()
	if b.Empty() {
		return src, nil
	}
	tint := colorutil.Black
	if spec.Color != "" {
		c, err := colorutil.ParseHex(spec.Color)
		if err != nil {
			return nil, fmt.Errorf("drop shadow: %w", err)
		}
		tint = c
	}

	bgr, alpha, err := toMats(src)
	if err != nil {
		return nil, err
	}
	bgr.Close()
	defer func() { alpha.Close() }()

	if sigma := spec.Value("blur", 2); sigma > 0 {
		blurred := gocv.NewMat()
		gocv.GaussianBlur(alpha, &blurred, image.Point{}, sigma, sigma, gocv.BorderDefault)
		alpha.Close()
		alpha = blurred
	}
	offset := geometry.Translation(spec.Value("offsetX", 4), spec.Value("offsetY", 4))
	shifted := warp(alpha, offset, b.Dx(), b.Dy())
	defer shifted.Close()

	opacity := spec.Value("opacity", 1)
	out := image.NewRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			a := float64(shifted.GetUCharAt(y, x)) / 255 * opacity
			out.SetRGBA(b.Min.X+x, b.Min.Y+y, colorutil.ScaleAlpha(tint, a))
		}
	}
	if !spec.Flags["shadowOnly"] {
		draw.Draw(out, b, src, b.Min, draw.Over)
	}
	return out, nil
}

// warp applies an affine transform to a single-channel mat, filling
// uncovered pixels with zero.
func warp(src gocv.Mat, t geometry.AffineTransform, width, height int) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, t.A)
	m.SetDoubleAt(0, 1, t.B)
	m.SetDoubleAt(0, 2, t.TX)
	m.SetDoubleAt(1, 0, t.C)
	m.SetDoubleAt(1, 1, t.D)
	m.SetDoubleAt(1, 2, t.TY)

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, image.Point{X: width, Y: height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}

// toMats splits img into a BGR mat and an 8-bit alpha mat.
func toMats(img image.Image) (bgr, alpha gocv.Mat, err error) {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	m, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("to mat: %w", err)
	}
	defer m.Close()

	ch := gocv.Split(m)
	alpha = ch[3]
	closeAll(ch[:3])

	bgr = gocv.NewMat()
	gocv.CvtColor(m, &bgr, gocv.ColorRGBAToBGR)
	return bgr, alpha, nil
}

// fromMats joins a BGR mat and an alpha mat into an RGBA image.
func fromMats(bgr, alpha gocv.Mat) (*image.RGBA, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)

	ch := gocv.Split(rgb)
	defer closeAll(ch)

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge([]gocv.Mat{ch[0], ch[1], ch[2], alpha}, &merged)

	out := image.NewRGBA(image.Rect(0, 0, merged.Cols(), merged.Rows()))
	if n := copy(out.Pix, merged.ToBytes()); n != len(out.Pix) {
		return nil, fmt.Errorf("from mat: got %d of %d bytes", n, len(out.Pix))
	}
	return out, nil
}

// toRGBA returns img as an *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
