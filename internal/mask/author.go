// Package mask implements the upholstery mask authoring tool: an operator
// paints a binary opacity mask over a product photo with a brush and an
// eraser, and saves it as a flat black/white raster.
package mask

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/youruser/fabricview/internal/blend"
	"github.com/youruser/fabricview/internal/gesture"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// ErrNotReady is returned by Save while no product photo is available.
var ErrNotReady = errors.New("mask: product photo not loaded")

// Options bound the working surface and the brush.
type Options struct {
	MaxWidth     int
	BrushMin     int
	BrushMax     int
	BrushDefault int
	BrushStep    int
}

func DefaultOptions() Options {
	return Options{
		MaxWidth:     1000,
		BrushMin:     5,
		BrushMax:     100,
		BrushDefault: 30,
		BrushStep:    5,
	}
}

// Resource is a flattened mask: opaque, the same size as the surface it was
// authored on, every pixel either 255 (replace) or 0 (keep).
type Resource struct {
	Image  *image.Gray
	Width  int
	Height int
}

// Status is a snapshot of the author for display.
type Status struct {
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Tool      string `json:"tool"`
	BrushSize int    `json:"brush_size"`
	Visible   bool   `json:"visible"`
	Painting  bool   `json:"painting"`
	CanSave   bool   `json:"can_save"`
}

var overlayTint = color.NRGBA{R: 230, G: 40, B: 90, A: 255}

// Author is one mask authoring session. It is safe for concurrent use; events
// are applied in the order they acquire the lock.
type Author struct {
	mu      sync.Mutex
	opts    Options
	state   State
	err     error
	photo   *image.NRGBA
	surface *image.Alpha
	tool    Tool
	size    int
	visible bool
	stroke  gesture.Tracker[Tool]
}

// New returns an author waiting for its photo.
func New(opts Options) *Author {
	return &Author{
		opts:    opts,
		state:   StateLoading,
		size:    clampInt(opts.BrushDefault, opts.BrushMin, opts.BrushMax),
		visible: true,
	}
}

// Open loads the product photo and, if maskAddr is set, the mask to resume
// from. It never fails: a photo that cannot be loaded leaves the author in
// StateFailed with saving disabled, and a prior mask that cannot be loaded
// is dropped in favour of a blank surface.
func Open(ctx context.Context, loader imagepkg.Loader, photoAddr, maskAddr string, opts Options) *Author {
	a := New(opts)
	photo, err := loader.Load(ctx, photoAddr)
	if err != nil {
		util.Logger.Warn("mask: product photo load failed",
			zap.String("photo", photoAddr), zap.Error(err))
		a.Fail(err)
		return a
	}
	var prior image.Image
	if maskAddr != "" {
		prior, err = loader.Load(ctx, maskAddr)
		if err != nil {
			util.Logger.Warn("mask: prior mask load failed, starting blank",
				zap.String("mask", maskAddr), zap.Error(err))
			prior = nil
		}
	}
	a.Attach(photo, prior)
	return a
}

// Attach installs the product photo, scaled so its width does not exceed
// MaxWidth, and an optional prior mask resampled onto the same surface.
func (a *Author) Attach(photo, prior image.Image) {
	w, h := workingSize(photo.Bounds().Dx(), photo.Bounds().Dy(), a.opts.MaxWidth)

	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), photo, photo.Bounds(), draw.Src, nil)

	surface := image.NewAlpha(scaled.Bounds())
	if prior != nil {
		resampled := image.NewNRGBA(scaled.Bounds())
		draw.ApproxBiLinear.Scale(resampled, resampled.Bounds(), prior, prior.Bounds(), draw.Src, nil)
		surface = blend.Coverage(resampled)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.photo = scaled
	a.surface = surface
	a.state = StateReady
	a.err = nil
	a.stroke.Reset()
}

// Fail marks the photo as unavailable.
func (a *Author) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateFailed
	a.err = err
}

func workingSize(w, h, maxWidth int) (int, int) {
	if maxWidth <= 0 || w <= maxWidth {
		return w, h
	}
	nh := int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
	return maxWidth, max(nh, 1)
}

// Handle applies one pointer event. It reports whether the event changed
// anything; events are ignored until the photo is ready.
//
// Start paints a dot and captures the pointer with the tool selected at that
// moment. Move connects the previous point to the new one, and is a no-op
// without a capture for that pointer. End and Leave release the capture.
func (a *Author) Handle(ev Event, vp Viewport) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateReady {
		return false
	}
	b := a.surface.Bounds()
	p := vp.ToPixel(ev.X, ev.Y, b.Dx(), b.Dy())

	switch ev.Kind {
	case Start:
		if !a.stroke.Begin(ev.Pointer, a.tool, p) {
			return false
		}
		if err := stamp(a.surface, a.tool, p, p, a.size, true); err != nil {
			util.Logger.Warn("stroke not painted", zap.String("tool", a.tool.String()), zap.Error(err))
		}
		return true
	case Move:
		prev, tool, ok := a.stroke.Move(ev.Pointer, p)
		if !ok {
			return false
		}
		if prev == p {
			return true
		}
		if err := stamp(a.surface, tool, prev, p, a.size, false); err != nil {
			util.Logger.Warn("stroke not painted", zap.String("tool", tool.String()), zap.Error(err))
			return false
		}
		return true
	case End, Leave:
		return a.stroke.End(ev.Pointer)
	}
	return false
}

func (a *Author) SetTool(t Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tool = t
}

// SetBrushSize sets the brush diameter, clamped to the configured range, and
// returns the value applied.
func (a *Author) SetBrushSize(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = clampInt(n, a.opts.BrushMin, a.opts.BrushMax)
	return a.size
}

func (a *Author) GrowBrush() int {
	a.mu.Lock()
	n := a.size + a.opts.BrushStep
	a.mu.Unlock()
	return a.SetBrushSize(n)
}

func (a *Author) ShrinkBrush() int {
	a.mu.Lock()
	n := a.size - a.opts.BrushStep
	a.mu.Unlock()
	return a.SetBrushSize(n)
}

// SetVisible hides or shows the mask in Overlay without touching it.
func (a *Author) SetVisible(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visible = v
}

// Clear wipes the surface to fully transparent and drops any active stroke.
func (a *Author) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface != nil {
		clear(a.surface.Pix)
	}
	a.stroke.Reset()
}

// Overlay renders what the operator sees: the working photo with painted
// pixels tinted when the mask is visible. It returns nil before the photo is
// ready.
func (a *Author) Overlay() *image.NRGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateReady {
		return nil
	}
	out := image.NewNRGBA(a.photo.Bounds())
	copy(out.Pix, a.photo.Pix)
	if !a.visible {
		return out
	}
	tint := image.NewNRGBA(out.Bounds())
	blend.Fill(tint, overlayTint)
	blend.SourceIn(tint, a.surface)
	blend.Composite(out, tint, blend.Normal, 0.5)
	return out
}

// Save flattens the surface onto an opaque black background and binarises
// it, so every exported pixel is either replace (255) or keep (0).
func (a *Author) Save() (Resource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateReady {
		return Resource{}, ErrNotReady
	}
	b := a.surface.Bounds()
	out := image.NewGray(b)
	for i, c := range a.surface.Pix {
		// white·c + black·(1-c), then split at half coverage
		if c >= 128 {
			out.Pix[i] = 255
		}
	}
	return Resource{Image: out, Width: b.Dx(), Height: b.Dy()}, nil
}

func (a *Author) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Status{
		State:     a.state.String(),
		Tool:      a.tool.String(),
		BrushSize: a.size,
		Visible:   a.visible,
		Painting:  a.stroke.State() == gesture.Capturing,
		CanSave:   a.state == StateReady,
	}
	if a.err != nil {
		s.Error = a.err.Error()
	}
	if a.surface != nil {
		s.Width = a.surface.Bounds().Dx()
		s.Height = a.surface.Bounds().Dy()
	}
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
