package blend

import (
	"image"
	"image/color"
	"math"
)

// Composite draws src over dst in place using mode, with src alpha scaled by
// opacity. Only the intersection of the two bounds is touched. Pixels where
// the scaled source alpha is zero are left bit-for-bit unchanged, so an
// opacity of 0 is a no-op.
func Composite(dst, src *image.NRGBA, mode Mode, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	r := dst.Bounds().Intersect(src.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(x, y)
			sa := float64(src.Pix[si+3]) / 255 * opacity
			if sa == 0 {
				continue
			}
			ab := float64(dst.Pix[di+3]) / 255
			sr := float64(src.Pix[si]) / 255
			sg := float64(src.Pix[si+1]) / 255
			sb := float64(src.Pix[si+2]) / 255
			dr := float64(dst.Pix[di]) / 255
			dg := float64(dst.Pix[di+1]) / 255
			db := float64(dst.Pix[di+2]) / 255

			br, bg, bb := mix(mode, sr, sg, sb, dr, dg, db)

			// Cs' = (1 - ab)·Cs + ab·B(Cb, Cs), then source-over.
			mr := (1-ab)*sr + ab*br
			mg := (1-ab)*sg + ab*bg
			mb := (1-ab)*sb + ab*bb

			ao := sa + ab*(1-sa)
			dst.Pix[di] = to8((sa*mr + ab*(1-sa)*dr) / ao)
			dst.Pix[di+1] = to8((sa*mg + ab*(1-sa)*dg) / ao)
			dst.Pix[di+2] = to8((sa*mb + ab*(1-sa)*db) / ao)
			dst.Pix[di+3] = to8(ao)
		}
	}
}

// Fill paints every pixel of dst with c.
func Fill(dst *image.NRGBA, c color.NRGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Pix[i] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
			i += 4
		}
	}
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
