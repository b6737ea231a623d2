package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/gosimple/slug"
)

var ErrUnsupportedFormat = errors.New("imagepkg: unsupported export format")

// Format is an export file format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// ParseFormat accepts png, jpg/jpeg and webp (case-insensitive). Empty input
// yields def.
func ParseFormat(s string, def Format) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	}
	return "image/png"
}

// Encoder serialises rendered surfaces.
type Encoder struct {
	JPEGQuality int
}

// Encode writes img to w in format f. JPEG output has no alpha channel, so
// transparent regions come out black.
func (e Encoder) Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case JPEG:
		q := e.JPEGQuality
		if q <= 0 {
			q = 90
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	case WebP:
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Bytes encodes img into memory.
func (e Encoder) Bytes(img image.Image, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, img, f); err != nil {
		return nil, fmt.Errorf("imagepkg: encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// Filename builds a deterministic download name: prefix and each part slugged,
// joined by dashes, plus the format's extension. Empty parts are skipped.
func Filename(prefix string, f Format, parts ...string) string {
	name := slug.Make(prefix)
	for _, p := range parts {
		if s := slug.Make(p); s != "" {
			name += "-" + s
		}
	}
	return name + "." + f.Ext()
}
