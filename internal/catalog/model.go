package catalog

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Product is the part of a catalog product record the compositing tools use.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	// MaskURL addresses the authored upholstery mask; empty when none exists.
	MaskURL string `json:"mask_url,omitempty"`
}

// Fabric is one selectable swatch: a family ("Linen") and a variant
// ("Oat"), with a flat colour and an optional tileable texture.
type Fabric struct {
	ID         string `json:"id"`
	Family     string `json:"family"`
	Variant    string `json:"variant"`
	Color      string `json:"color"`
	TextureURL string `json:"texture_url,omitempty"`
}

// RGBA parses Color as #rgb or #rrggbb. Unparseable values fall back to
// mid grey so a bad catalog row still renders.
func (f Fabric) RGBA() color.NRGBA {
	c, err := ParseHexColor(f.Color)
	if err != nil {
		return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
	return c
}

func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("catalog: bad colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("catalog: bad colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
