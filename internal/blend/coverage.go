package blend

import (
	"image"
	"image/color"
)

// DestinationOver merges cov into dst at offset: the existing coverage stays
// on top and cov fills in underneath, which for a single-colour surface is a
// union of the two.
func DestinationOver(dst, cov *image.Alpha, at image.Point) {
	combine(dst, cov, at, func(d, s uint32) uint32 {
		return d + s*(255-d)/255
	})
}

// DestinationOut removes cov from dst at offset.
func DestinationOut(dst, cov *image.Alpha, at image.Point) {
	combine(dst, cov, at, func(d, s uint32) uint32 {
		return d * (255 - s) / 255
	})
}

func combine(dst, cov *image.Alpha, at image.Point, op func(d, s uint32) uint32) {
	cb := cov.Bounds()
	r := cb.Add(at).Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			s := uint32(cov.Pix[cov.PixOffset(x-at.X, y-at.Y)])
			if s == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = uint8(op(uint32(dst.Pix[i]), s))
		}
	}
}

// SourceIn keeps layer only where cov is opaque: each layer alpha is scaled by
// the matching coverage value. Bounds must match.
func SourceIn(layer *image.NRGBA, cov *image.Alpha) {
	r := layer.Bounds().Intersect(cov.Bounds())
	lb := layer.Bounds()
	for y := lb.Min.Y; y < lb.Max.Y; y++ {
		for x := lb.Min.X; x < lb.Max.X; x++ {
			i := layer.PixOffset(x, y) + 3
			if !(image.Point{X: x, Y: y}).In(r) {
				layer.Pix[i] = 0
				continue
			}
			c := uint32(cov.Pix[cov.PixOffset(x, y)])
			layer.Pix[i] = uint8(uint32(layer.Pix[i]) * c / 255)
		}
	}
}

// Coverage reads a mask image as coverage. Luminance is taken from the
// premultiplied colour, so white marks covered pixels and both black and
// transparent mark uncovered ones.
func Coverage(img image.Image) *image.Alpha {
	b := img.Bounds()
	dst := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			dst.Pix[dst.PixOffset(x, y)] = g.Y
		}
	}
	return dst
}

// Threshold binarises cov in place: values at or above 128 become 255, the
// rest 0.
func Threshold(cov *image.Alpha) {
	for i, v := range cov.Pix {
		if v >= 128 {
			cov.Pix[i] = 255
		} else {
			cov.Pix[i] = 0
		}
	}
}
