package blend

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// TileSize returns the edge length of one texture tile for a surface of the
// given size: fraction of the larger dimension, never below 8px.
func TileSize(width, height int, fraction float64) int {
	n := int(math.Round(float64(max(width, height)) * fraction))
	return max(n, 8)
}

// Tile covers dst with repeats of tex scaled so each tile is tileSize wide,
// starting at dst's top-left corner.
func Tile(dst *image.NRGBA, tex image.Image, tileSize int) {
	tb := tex.Bounds()
	if tb.Empty() || tileSize <= 0 {
		return
	}
	th := max(1, int(math.Round(float64(tileSize)*float64(tb.Dy())/float64(tb.Dx()))))
	tile := image.NewNRGBA(image.Rect(0, 0, tileSize, th))
	draw.CatmullRom.Scale(tile, tile.Bounds(), tex, tb, draw.Src, nil)

	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += th {
		for x := b.Min.X; x < b.Max.X; x += tileSize {
			r := image.Rect(x, y, x+tileSize, y+th).Intersect(b)
			draw.Draw(dst, r, tile, image.Point{}, draw.Src)
		}
	}
}
