package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gosimple/slug"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", PNG, false},
		{"PNG", PNG, false},
		{"jpg", JPEG, false},
		{"jpeg", JPEG, false},
		{"webp", WebP, false},
		{"tiff", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in, PNG)
		if (err != nil) != tt.err {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if tt.err && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) err = %v, want ErrUnsupportedFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugNames(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Linen", "linen"},
		{"  Stone Grey ", "stone-grey"},
		{"Velvet / Deep-Blue #3", "velvet-deep-blue-3"},
		{"Bouclé", "boucle"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := slug.Make(tt.in); got != tt.want {
			t.Errorf("slug.Make(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("fabric", JPEG, "Linen", "Oat Meal"); got != "fabric-linen-oat-meal.jpg" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename("room-preview", PNG, "Oslo Sofa", ""); got != "room-preview-oslo-sofa.png" {
		t.Errorf("Filename = %q", got)
	}
}

func TestEncoderFormats(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	enc := Encoder{JPEGQuality: 80}
	for _, f := range []Format{PNG, JPEG, WebP} {
		b, err := enc.Bytes(img, f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if len(b) == 0 {
			t.Fatalf("%s: empty output", f)
		}
		got, err := Decode(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("%s: decode: %v", f, err)
		}
		if got.Bounds().Dx() != 8 || got.Bounds().Dy() != 6 {
			t.Errorf("%s: bounds %v", f, got.Bounds())
		}
	}
	if _, err := enc.Bytes(img, Format("gif")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("gif err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeLimited(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		maxPixels int
		wantErr   error
	}{
		{"unlimited", 0, nil},
		{"exact budget", 1200, nil},
		{"one pixel over", 1199, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLimited(bytes.NewReader(buf.Bytes()), tt.maxPixels)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if b := got.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
				t.Errorf("bounds = %v", b)
			}
		})
	}

	if _, err := DecodeLimited(bytes.NewReader([]byte("not an image")), 100); err == nil {
		t.Error("garbage decoded")
	}
}

func TestAssetLoaderLocal(t *testing.T) {
	dataDir := t.TempDir()
	mediaDir := t.TempDir()
	writePNG(t, filepath.Join(dataDir, "products", "sofa.png"), 4, 3, color.NRGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(mediaDir, "masks", "sofa.png"), 4, 3, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	l := &AssetLoader{DataDir: dataDir, Roots: map[string]string{"/media": mediaDir}}
	ctx := context.Background()

	img, err := l.Load(ctx, "products/sofa.png")
	if err != nil {
		t.Fatalf("data dir load: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width = %d, want 4", img.Bounds().Dx())
	}
	if _, err := l.Load(ctx, "/media/masks/sofa.png"); err != nil {
		t.Fatalf("media load: %v", err)
	}
	if _, err := l.Load(ctx, ""); !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("empty address err = %v", err)
	}
	if _, err := l.Load(ctx, "products/missing.png"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWithinRefusesEscape(t *testing.T) {
	root := t.TempDir()
	p, err := within(root, "../../etc/passwd")
	if err != nil {
		t.Fatalf("within: %v", err)
	}
	// the leading slash anchors the path, so ".." cannot climb past root
	if filepath.Dir(p) != filepath.Join(root, "etc") {
		t.Errorf("resolved %q outside root %q", p, root)
	}
}

func TestAssetLoaderRemote(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	l := &AssetLoader{Timeout: time.Second}
	got, err := l.Load(context.Background(), srv.URL+"/fabric.png")
	if err != nil {
		t.Fatalf("remote load: %v", err)
	}
	if got.Bounds().Dx() != 5 {
		t.Errorf("width = %d, want 5", got.Bounds().Dx())
	}
}

func TestStampQR(t *testing.T) {
	canvas := image.NewNRGBA(image.Rect(0, 0, 600, 400))
	out, err := StampQR(canvas, "https://example.com/p/oslo-sofa")
	if err != nil {
		t.Fatalf("StampQR: %v", err)
	}
	if out.Bounds() != canvas.Bounds() {
		t.Fatalf("bounds %v, want %v", out.Bounds(), canvas.Bounds())
	}
	if out.NRGBAAt(10, 10).A != 0 {
		t.Error("top-left corner should be untouched")
	}
	// the QR quiet zone is white, so the stamp region becomes opaque
	if out.NRGBAAt(600-10-30, 400-10-30).A != 255 {
		t.Error("bottom-right corner not stamped")
	}
}
