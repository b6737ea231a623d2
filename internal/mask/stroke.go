package mask

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"github.com/youruser/fabricview/internal/blend"
	"github.com/youruser/fabricview/internal/gesture"
)

// paint closes the current path; stroke selects Stroke over Fill.
var paint = func(dc *gg.Context, stroke bool) error {
	if stroke {
		return dc.Stroke()
	}
	return dc.Fill()
}

// stamp renders one stroke piece with tool onto surface. A dot is a filled
// circle of diameter size at to; otherwise a segment from -> to of width size
// with round caps and joins, so consecutive segments meet without gaps.
//
// The shape is rasterised into a scratch context covering only its bounding
// box and merged into the surface as coverage. The surface is untouched when
// rasterising fails.
func stamp(surface *image.Alpha, tool Tool, from, to gesture.Point, size int, dot bool) error {
	r := float64(size) / 2
	box := image.Rect(
		int(math.Floor(min(from.X, to.X)-r))-1,
		int(math.Floor(min(from.Y, to.Y)-r))-1,
		int(math.Ceil(max(from.X, to.X)+r))+1,
		int(math.Ceil(max(from.Y, to.Y)+r))+1,
	).Intersect(surface.Bounds())
	if box.Empty() {
		return nil
	}

	dc := gg.NewContext(box.Dx(), box.Dy())
	defer dc.Close()
	dc.SetRGB(1, 1, 1)
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	if dot {
		dc.DrawCircle(to.X-ox, to.Y-oy, r)
	} else {
		dc.SetLineWidth(float64(size))
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.DrawLine(from.X-ox, from.Y-oy, to.X-ox, to.Y-oy)
	}
	if err := paint(dc, !dot); err != nil {
		return fmt.Errorf("mask: rasterise stroke: %w", err)
	}

	m := gg.NewMaskFromAlpha(dc.Image())
	cov := &image.Alpha{
		Pix:    m.Data(),
		Stride: m.Width(),
		Rect:   image.Rect(0, 0, m.Width(), m.Height()),
	}
	switch tool {
	case ToolEraser:
		blend.DestinationOut(surface, cov, box.Min)
	default:
		blend.DestinationOver(surface, cov, box.Min)
	}
	return nil
}
