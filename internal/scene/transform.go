package scene

// Transform holds the two independent placements of a scene. The background
// is scaled by Zoom about the container centre and shifted by the offset, in
// container pixels. The product is anchored at its centre, at ProductX% of
// the container width and ProductY% of its height, and is ProductSize% of the
// container width wide.
type Transform struct {
	Zoom        float64 `json:"zoom"`
	OffsetX     float64 `json:"offset_x"`
	OffsetY     float64 `json:"offset_y"`
	ProductX    float64 `json:"product_x"`
	ProductY    float64 `json:"product_y"`
	ProductSize float64 `json:"product_size"`
}

// Target is what a drag moves. It is decided once, when the press lands.
type Target uint8

const (
	Background Target = iota
	Product
)

func (t Target) String() string {
	if t == Product {
		return "product"
	}
	return "background"
}

func clamp(v, lo, hi float64) float64 {
	if !(v > lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
