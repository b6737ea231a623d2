package compose

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/youruser/fabricview/internal/catalog"
	imagepkg "github.com/youruser/fabricview/internal/image"
)

// ErrNoPhoto is returned by DirectBlend.Export before a photo is loaded.
var ErrNoPhoto = errors.New("compose: no photo loaded")

// DirectBlend tints a whole user photo with a fabric at an adjustable
// intensity. There is no mask: every pixel takes the fabric's colour. Every
// change re-renders from the original photo.
type DirectBlend struct {
	opts Options
	enc  imagepkg.Encoder

	mu        sync.Mutex
	photo     *image.NRGBA
	fabric    catalog.Fabric
	texture   image.Image
	hasFabric bool
	intensity float64
	rendered  *image.NRGBA
}

func NewDirectBlend(opts Options, enc imagepkg.Encoder) *DirectBlend {
	return &DirectBlend{
		opts:      opts,
		enc:       enc,
		intensity: clamp01(opts.DefaultIntensity),
	}
}

// LoadPhoto decodes the user's photo and renders it with the current fabric.
// On a decode error, or a photo over MaxPixels, the previous photo is kept.
func (d *DirectBlend) LoadPhoto(r io.Reader) error {
	img, err := imagepkg.DecodeLimited(r, d.opts.MaxPixels)
	if err != nil {
		return fmt.Errorf("compose: decode photo: %w", err)
	}
	d.SetPhoto(img)
	return nil
}

func (d *DirectBlend) SetPhoto(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.photo = imaging.Clone(img)
	d.render()
}

// SetFabric selects the swatch; texture may be nil for a flat colour.
func (d *DirectBlend) SetFabric(f catalog.Fabric, texture image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fabric = f
	d.texture = texture
	d.hasFabric = true
	d.render()
}

// SetIntensity sets the blend strength, clamped to [0,1], and returns the
// value applied.
func (d *DirectBlend) SetIntensity(v float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intensity = clamp01(v)
	d.render()
	return d.intensity
}

func (d *DirectBlend) Intensity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intensity
}

func (d *DirectBlend) HasPhoto() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.photo != nil
}

func (d *DirectBlend) Fabric() (catalog.Fabric, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fabric, d.hasFabric
}

// Image returns the current rendering, or nil without a photo.
func (d *DirectBlend) Image() *image.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rendered
}

// Export encodes the current rendering and names it after the fabric.
func (d *DirectBlend) Export(f imagepkg.Format) ([]byte, string, error) {
	d.mu.Lock()
	img, fabric := d.rendered, d.fabric
	d.mu.Unlock()
	if img == nil {
		return nil, "", ErrNoPhoto
	}
	data, err := d.enc.Bytes(img, f)
	if err != nil {
		return nil, "", err
	}
	return data, imagepkg.Filename("fabric", f, fabric.Family, fabric.Variant), nil
}

// Reset drops the photo and restores the default intensity. The fabric
// selection is kept.
func (d *DirectBlend) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.photo = nil
	d.rendered = nil
	d.intensity = clamp01(d.opts.DefaultIntensity)
}

func (d *DirectBlend) render() {
	if d.photo == nil {
		d.rendered = nil
		return
	}
	out := imaging.Clone(d.photo)
	if d.hasFabric {
		layer := FabricLayer(out.Bounds(), d.fabric, d.texture, d.opts.TileFraction)
		reskin(out, layer, d.intensity, d.intensity*d.opts.DirectOverlay)
	}
	d.rendered = out
}

func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
