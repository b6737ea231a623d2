// Package scene places a product cut-out inside a photo of the customer's
// room. The room photo can be panned and zoomed, the product dragged and
// resized, and the composition exported at a higher resolution than it is
// shown at.
package scene

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/youruser/fabricview/internal/gesture"
	imagepkg "github.com/youruser/fabricview/internal/image"
)

var (
	// ErrNoPhoto is returned by Export while no room photo is loaded.
	ErrNoPhoto = errors.New("scene: no room photo loaded")
	// ErrBadViewport rejects container sizes that are not positive and finite.
	ErrBadViewport = errors.New("scene: invalid viewport")
)

type Options struct {
	// MaxDimension bounds the longer side of a retained room photo.
	MaxDimension int
	// MaxViewport bounds the longer side of the container.
	MaxViewport float64
	// MaxPixels rejects room photos larger than this before decoding.
	MaxPixels int
	ZoomMin      float64
	ZoomMax      float64
	ZoomStep     float64
	// WheelZoom is the zoom factor applied per wheel notch.
	WheelZoom   float64
	SizeMin     float64
	SizeMax     float64
	SizeDefault float64
	SizeStep    float64
	// Supersample multiplies the container size for exports.
	Supersample int
}

func DefaultOptions() Options {
	return Options{
		MaxDimension: 1920,
		MaxViewport:  4096,
		MaxPixels:    40_000_000,
		ZoomMin:      0.5,
		ZoomMax:      4,
		ZoomStep:     0.25,
		WheelZoom:    1.1,
		SizeMin:      5,
		SizeMax:      90,
		SizeDefault:  30,
		SizeStep:     5,
		Supersample:  2,
	}
}

type State uint8

const (
	Empty State = iota
	PhotoLoaded
)

func (s State) String() string {
	if s == PhotoLoaded {
		return "photo_loaded"
	}
	return "empty"
}

// Pointer is one pointer sample in container coordinates.
type Pointer struct {
	ID   int
	X, Y float64
}

// Status is a snapshot of a composer for display.
type Status struct {
	State       string    `json:"state"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	PhotoWidth  int       `json:"photo_width,omitempty"`
	PhotoHeight int       `json:"photo_height,omitempty"`
	Product     string    `json:"product,omitempty"`
	Transform   Transform `json:"transform"`
	Dragging    string    `json:"dragging,omitempty"`
}

// Composer is one room-preview session. It is safe for concurrent use.
type Composer struct {
	opts Options
	enc  imagepkg.Encoder

	mu          sync.Mutex
	state       State
	width       float64
	height      float64
	photo       *image.NRGBA
	product     *image.NRGBA
	productName string
	tf          Transform
	drag        gesture.Tracker[Target]
	// dragFrom is the transform at press time; moves are applied relative
	// to it so clamping never accumulates drift.
	dragFrom Transform
}

func New(opts Options, enc imagepkg.Encoder) *Composer {
	c := &Composer{opts: opts, enc: enc}
	c.tf = c.defaultTransform()
	return c
}

func (c *Composer) defaultTransform() Transform {
	return Transform{
		Zoom:        1,
		ProductX:    50,
		ProductY:    50,
		ProductSize: clamp(c.opts.SizeDefault, c.opts.SizeMin, c.opts.SizeMax),
	}
}

// SetViewport sets the container size the scene is displayed in. A size
// whose longer side exceeds MaxViewport is scaled down keeping its aspect
// ratio; Status reports the size actually used.
func (c *Composer) SetViewport(w, h float64) error {
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: %vx%v", ErrBadViewport, w, h)
	}
	if m := c.opts.MaxViewport; m > 0 && math.Max(w, h) > m {
		if w >= h {
			w, h = m, math.Max(h*m/w, 1)
		} else {
			w, h = math.Max(w*m/h, 1), m
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = w, h
	return nil
}

// LoadPhoto decodes a room photo, downscales it to MaxDimension on its
// longer side if needed, and resets every transform. A photo that fails to
// decode or exceeds MaxPixels leaves the composer as it was.
func (c *Composer) LoadPhoto(r io.Reader) error {
	img, err := imagepkg.DecodeLimited(r, c.opts.MaxPixels)
	if err != nil {
		return fmt.Errorf("scene: decode photo: %w", err)
	}
	c.SetPhoto(img)
	return nil
}

func (c *Composer) SetPhoto(img image.Image) {
	var photo *image.NRGBA
	if m := c.opts.MaxDimension; m > 0 {
		photo = imaging.Fit(img, m, m, imaging.Lanczos)
	} else {
		photo = imaging.Clone(img)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.photo = photo
	c.state = PhotoLoaded
	c.tf = c.defaultTransform()
	c.drag.Reset()
	if c.width <= 0 || c.height <= 0 {
		b := photo.Bounds()
		c.width, c.height = float64(b.Dx()), float64(b.Dy())
	}
}

// SetProduct sets the product cut-out and the name used for export files.
func (c *Composer) SetProduct(img image.Image, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img != nil {
		c.product = imaging.Clone(img)
	} else {
		c.product = nil
	}
	c.productName = name
}

// Press starts a drag. The product is the target if the press lands on it,
// the background otherwise, and that target is kept until Release.
func (c *Composer) Press(p Pointer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != PhotoLoaded {
		return false
	}
	at := gesture.Point{X: p.X, Y: p.Y}
	target := Background
	if c.overProduct(at) {
		target = Product
	}
	if !c.drag.Begin(p.ID, target, at) {
		return false
	}
	c.dragFrom = c.tf
	return true
}

// Move drags the target captured by Press. Without a capture for p it does
// nothing.
func (c *Composer) Move(p Pointer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := gesture.Point{X: p.X, Y: p.Y}
	if _, _, ok := c.drag.Move(p.ID, at); !ok {
		return false
	}
	target, _ := c.drag.Target()
	d := at.Sub(c.drag.Start())
	switch target {
	case Product:
		c.tf.ProductX = clamp(c.dragFrom.ProductX+100*d.X/c.width, 0, 100)
		c.tf.ProductY = clamp(c.dragFrom.ProductY+100*d.Y/c.height, 0, 100)
	default:
		c.tf.OffsetX = c.dragFrom.OffsetX + d.X
		c.tf.OffsetY = c.dragFrom.OffsetY + d.Y
	}
	return true
}

func (c *Composer) Release(p Pointer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.End(p.ID)
}

// Wheel handles a scroll at (x, y). Over the product it resizes the product,
// elsewhere it zooms the background. A negative delta grows or zooms in.
func (c *Composer) Wheel(x, y, delta float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != PhotoLoaded || delta == 0 {
		return false
	}
	if c.overProduct(gesture.Point{X: x, Y: y}) {
		step := c.opts.SizeStep
		if delta > 0 {
			step = -step
		}
		c.setSize(c.tf.ProductSize + step)
		return true
	}
	f := c.opts.WheelZoom
	if delta > 0 {
		f = 1 / f
	}
	c.setZoom(c.tf.Zoom * f)
	return true
}

func (c *Composer) SetZoom(z float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setZoom(z)
	return c.tf.Zoom
}

func (c *Composer) ZoomIn() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setZoom(c.tf.Zoom + c.opts.ZoomStep)
	return c.tf.Zoom
}

func (c *Composer) ZoomOut() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setZoom(c.tf.Zoom - c.opts.ZoomStep)
	return c.tf.Zoom
}

func (c *Composer) setZoom(z float64) {
	c.tf.Zoom = clamp(z, c.opts.ZoomMin, c.opts.ZoomMax)
}

// SetProductSize sets the product width in percent of the container,
// clamped to the configured range, and returns the value applied.
func (c *Composer) SetProductSize(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSize(v)
	return c.tf.ProductSize
}

func (c *Composer) GrowProduct() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSize(c.tf.ProductSize + c.opts.SizeStep)
	return c.tf.ProductSize
}

func (c *Composer) ShrinkProduct() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSize(c.tf.ProductSize - c.opts.SizeStep)
	return c.tf.ProductSize
}

func (c *Composer) setSize(v float64) {
	c.tf.ProductSize = clamp(v, c.opts.SizeMin, c.opts.SizeMax)
}

// SetProductPosition places the product anchor, clamped to the container.
func (c *Composer) SetProductPosition(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tf.ProductX = clamp(x, 0, 100)
	c.tf.ProductY = clamp(y, 0, 100)
}

// Reset discards the room photo and every transform. The product and the
// viewport are kept.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photo = nil
	c.state = Empty
	c.tf = c.defaultTransform()
	c.drag.Reset()
}

func (c *Composer) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tf
}

func (c *Composer) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		State:     c.state.String(),
		Width:     c.width,
		Height:    c.height,
		Product:   c.productName,
		Transform: c.tf,
	}
	if c.photo != nil {
		s.PhotoWidth = c.photo.Bounds().Dx()
		s.PhotoHeight = c.photo.Bounds().Dy()
	}
	if t, ok := c.drag.Target(); ok {
		s.Dragging = t.String()
	}
	return s
}

// productRect is the product's placement in container coordinates.
func (c *Composer) productRect() (x0, y0, w, h float64, ok bool) {
	if c.product == nil || c.width <= 0 {
		return 0, 0, 0, 0, false
	}
	pb := c.product.Bounds()
	w = c.tf.ProductSize / 100 * c.width
	h = w * float64(pb.Dy()) / float64(pb.Dx())
	x0 = c.tf.ProductX/100*c.width - w/2
	y0 = c.tf.ProductY/100*c.height - h/2
	return x0, y0, w, h, true
}

func (c *Composer) overProduct(p gesture.Point) bool {
	x0, y0, w, h, ok := c.productRect()
	if !ok {
		return false
	}
	return p.X >= x0 && p.X < x0+w && p.Y >= y0 && p.Y < y0+h
}

// coverScale is the scale at which the photo just covers the container.
func (c *Composer) coverScale() float64 {
	b := c.photo.Bounds()
	return math.Max(c.width/float64(b.Dx()), c.height/float64(b.Dy()))
}
