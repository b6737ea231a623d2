package scene

import (
	"image"
	"image/color"
	"math"

	"github.com/youruser/fabricview/internal/blend"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var backdrop = color.NRGBA{R: 32, G: 32, B: 32, A: 255}

// Preview renders the scene at container size.
func (c *Composer) Preview() (*image.NRGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render(1)
}

// Export renders the scene at Supersample times the container size, stamps a
// QR code for qrText when it is not empty, and encodes it. The filename is
// derived from the product name.
func (c *Composer) Export(f imagepkg.Format, qrText string) ([]byte, string, error) {
	c.mu.Lock()
	img, err := c.render(max(c.opts.Supersample, 1))
	name := c.productName
	c.mu.Unlock()
	if err != nil {
		return nil, "", err
	}
	if qrText != "" {
		if img, err = imagepkg.StampQR(img, qrText); err != nil {
			return nil, "", err
		}
	}
	data, err := c.enc.Bytes(img, f)
	if err != nil {
		return nil, "", err
	}
	return data, imagepkg.Filename("room-preview", f, name), nil
}

// render draws the background and the product onto a new surface of factor
// times the container size. Both placements are expressed as affine maps
// from source pixels to output pixels.
func (c *Composer) render(factor int) (*image.NRGBA, error) {
	if c.state != PhotoLoaded {
		return nil, ErrNoPhoto
	}
	k := float64(factor)
	w := max(1, int(math.Round(c.width*k)))
	h := max(1, int(math.Round(c.height*k)))
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	blend.Fill(out, backdrop)

	pb := c.photo.Bounds()
	s := c.coverScale() * c.tf.Zoom * k
	cx := (c.width/2 + c.tf.OffsetX) * k
	cy := (c.height/2 + c.tf.OffsetY) * k
	bg := f64.Aff3{
		s, 0, cx - s*float64(pb.Dx())/2,
		0, s, cy - s*float64(pb.Dy())/2,
	}
	draw.BiLinear.Transform(out, bg, c.photo, pb, draw.Src, nil)

	if x0, y0, pw, _, ok := c.productRect(); ok {
		qb := c.product.Bounds()
		ps := pw / float64(qb.Dx()) * k
		fg := f64.Aff3{
			ps, 0, x0 * k,
			0, ps, y0 * k,
		}
		draw.BiLinear.Transform(out, fg, c.product, qb, draw.Over, nil)
	}
	return out, nil
}
