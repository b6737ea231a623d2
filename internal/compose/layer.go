// Package compose re-skins photos with a fabric: TextureComposer replaces the
// upholstery area of a product photo through its authored mask, DirectBlend
// tints a whole user photo. Both use the same two passes, a colour blend that
// keeps the photo's luminosity and a faint overlay that brings back the
// texture's grain.
package compose

import (
	"image"

	"github.com/youruser/fabricview/internal/blend"
	"github.com/youruser/fabricview/internal/catalog"
)

type Options struct {
	// TileFraction sizes one texture tile relative to the larger photo side.
	TileFraction float64
	// OverlayOpacity is the texture imprint strength of TextureComposer.
	OverlayOpacity float64
	// DirectOverlay scales DirectBlend's intensity into its overlay opacity.
	DirectOverlay    float64
	DefaultIntensity float64
	// MaxPixels rejects DirectBlend uploads larger than this before decoding.
	MaxPixels int
}

func DefaultOptions() Options {
	return Options{
		TileFraction:     0.2,
		OverlayOpacity:   0.25,
		DirectOverlay:    0.3,
		DefaultIntensity: 0.5,
		MaxPixels:        40_000_000,
	}
}

// FabricLayer returns a surface of bounds b covered with the fabric: texture
// tiled from the top-left corner when one is given, the swatch colour
// otherwise.
func FabricLayer(b image.Rectangle, fabric catalog.Fabric, texture image.Image, tileFraction float64) *image.NRGBA {
	layer := image.NewNRGBA(b)
	if texture == nil {
		blend.Fill(layer, fabric.RGBA())
		return layer
	}
	blend.Tile(layer, texture, blend.TileSize(b.Dx(), b.Dy(), tileFraction))
	return layer
}

// reskin applies the colour pass and then the overlay pass of layer onto dst.
func reskin(dst, layer *image.NRGBA, colorOpacity, overlayOpacity float64) {
	blend.Composite(dst, layer, blend.Color, colorOpacity)
	blend.Composite(dst, layer, blend.Overlay, overlayOpacity)
}
