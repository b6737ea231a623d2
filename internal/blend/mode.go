package blend

// Mode selects how a source colour is mixed with the backdrop.
type Mode uint8

const (
	// Normal selects the source colour.
	Normal Mode = iota
	// Color takes hue and saturation from the source and luminosity from the
	// backdrop, so shading in the backdrop survives a colour change.
	Color
	// Overlay multiplies or screens depending on the backdrop, imprinting the
	// source's contrast while keeping the backdrop's highlights and shadows.
	Overlay
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Color:
		return "color"
	case Overlay:
		return "overlay"
	}
	return "unknown"
}

// Lum is the BT.601 luminance used by the non-separable modes.
func Lum(r, g, b float64) float64 {
	return 0.30*r + 0.59*g + 0.11*b
}

// ClipColor pulls out-of-range components back into [0,1] while keeping
// the luminance fixed.
func ClipColor(r, g, b float64) (float64, float64, float64) {
	l := Lum(r, g, b)
	n := min(r, g, b)
	x := max(r, g, b)

	if n < 0 {
		r = l + (r-l)*l/(l-n)
		g = l + (g-l)*l/(l-n)
		b = l + (b-l)*l/(l-n)
	}
	if x > 1 {
		r = l + (r-l)*(1-l)/(x-l)
		g = l + (g-l)*(1-l)/(x-l)
		b = l + (b-l)*(1-l)/(x-l)
	}
	return r, g, b
}

// SetLum shifts a colour to luminance l, then clips.
func SetLum(r, g, b, l float64) (float64, float64, float64) {
	d := l - Lum(r, g, b)
	return ClipColor(r+d, g+d, b+d)
}

func overlayChannel(cs, cb float64) float64 {
	if cb <= 0.5 {
		return 2 * cs * cb
	}
	return 1 - 2*(1-cs)*(1-cb)
}

// mix returns B(Cb, Cs) for the mode. Inputs and outputs are in [0,1].
func mix(m Mode, sr, sg, sb, dr, dg, db float64) (float64, float64, float64) {
	switch m {
	case Color:
		return SetLum(sr, sg, sb, Lum(dr, dg, db))
	case Overlay:
		return overlayChannel(sr, dr), overlayChannel(sg, dg), overlayChannel(sb, db)
	}
	return sr, sg, sb
}
