package imagepkg

import (
	"bytes"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRPNG returns PNG bytes of a QR code for the given text.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, size)
}

// GenerateQRImage returns an image.Image for further composition.
func GenerateQRImage(text string, size int) (image.Image, error) {
	b, err := GenerateQRPNG(text, size)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(b))
}

// StampQR pastes a QR code for text into the bottom-right corner of canvas,
// sized to a fraction of the shorter edge with an equal margin.
func StampQR(canvas image.Image, text string) (*image.NRGBA, error) {
	b := canvas.Bounds()
	size := min(b.Dx(), b.Dy()) / 6
	margin := size / 8
	qr, err := GenerateQRImage(text, size)
	if err != nil {
		return nil, err
	}
	qb := qr.Bounds()
	pos := image.Pt(b.Max.X-margin-qb.Dx(), b.Max.Y-margin-qb.Dy())
	return imaging.Paste(canvas, qr, pos), nil
}
