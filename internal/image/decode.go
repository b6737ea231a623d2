package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered raster format (jpeg, png, gif, webp, bmp, tga),
// applying EXIF orientation so phone photos come out upright.
func Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

// ErrTooLarge is returned by DecodeLimited for images over the pixel budget.
var ErrTooLarge = errors.New("image too large")

// DecodeLimited reads the header first and refuses images with more than
// maxPixels pixels before any pixel data is decoded. maxPixels <= 0 means no
// limit.
func DecodeLimited(r io.Reader, maxPixels int) (image.Image, error) {
	if maxPixels <= 0 {
		return Decode(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return Decode(bytes.NewReader(data))
}
