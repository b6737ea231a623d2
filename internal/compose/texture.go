package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/youruser/fabricview/internal/blend"
	"github.com/youruser/fabricview/internal/catalog"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var (
	// ErrSuperseded is returned by a render whose request was replaced by a
	// newer one before it finished. Its result was discarded.
	ErrSuperseded = errors.New("compose: render superseded by a newer request")
	// ErrNoPreview wraps every failure that leaves the composer without a
	// preview.
	ErrNoPreview = errors.New("compose: no preview available")
	// ErrMaskMismatch is returned when the mask's aspect ratio does not match
	// the photo it is applied to.
	ErrMaskMismatch = errors.New("compose: mask does not match photo")
)

// maxAspectDrift is how far a mask's aspect ratio may drift from the photo's
// before it is rejected instead of resampled.
const maxAspectDrift = 0.01

type ViewState uint8

const (
	Idle ViewState = iota
	Pending
	Ready
	NoPreview
)

func (s ViewState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case NoPreview:
		return "no_preview"
	}
	return "idle"
}

// View is what a TextureComposer currently shows. Image is nil unless State
// is Ready.
type View struct {
	Image *image.NRGBA
	Token uint64
	State ViewState
}

// Request names the three inputs of one render. A fabric without a texture
// renders as a flat colour.
type Request struct {
	PhotoURL string
	MaskURL  string
	Fabric   catalog.Fabric
}

// TextureComposer keeps the latest preview of one product. Every request is
// tagged with a token; a finished render is applied only if its token is
// still the latest one issued, so a slow earlier request can never overwrite
// a newer selection.
type TextureComposer struct {
	loader imagepkg.Loader
	opts   Options

	mu     sync.Mutex
	latest uint64
	view   View
}

func NewTextureComposer(loader imagepkg.Loader, opts Options) *TextureComposer {
	return &TextureComposer{loader: loader, opts: opts}
}

// Render loads the request's inputs and renders them. It returns
// ErrSuperseded if another request was issued meanwhile; the visible view is
// then left to that request.
func (c *TextureComposer) Render(ctx context.Context, req Request) (View, error) {
	return c.run(ctx, c.issue(), req)
}

// Submit starts a render in the background and returns its token. Poll
// Current for the outcome.
func (c *TextureComposer) Submit(req Request) uint64 {
	tok := c.issue()
	go func() {
		_, _ = c.run(context.Background(), tok, req)
	}()
	return tok
}

// Current returns the latest applied view.
func (c *TextureComposer) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *TextureComposer) issue() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest++
	c.view = View{Token: c.latest, State: Pending}
	return c.latest
}

func (c *TextureComposer) run(ctx context.Context, tok uint64, req Request) (View, error) {
	var img *image.NRGBA
	photo, mask, texture, err := c.load(ctx, req)
	if err == nil {
		img, err = RenderTexture(photo, mask, req.Fabric, texture, c.opts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.latest {
		return View{Token: tok, State: c.view.State}, ErrSuperseded
	}
	if err != nil {
		util.Logger.Warn("compose: preview unavailable",
			zap.String("photo", req.PhotoURL),
			zap.String("fabric", req.Fabric.ID),
			zap.Error(err))
		c.view = View{Token: tok, State: NoPreview}
		return c.view, fmt.Errorf("%w: %w", ErrNoPreview, err)
	}
	c.view = View{Image: img, Token: tok, State: Ready}
	return c.view, nil
}

// load fetches photo, mask and texture concurrently and waits for all three.
func (c *TextureComposer) load(ctx context.Context, req Request) (photo, mask, texture image.Image, err error) {
	var (
		wg   sync.WaitGroup
		errs [3]error
	)
	fetch := func(i int, addr string, dst *image.Image) {
		defer wg.Done()
		*dst, errs[i] = c.loader.Load(ctx, addr)
	}
	wg.Add(2)
	go fetch(0, req.PhotoURL, &photo)
	go fetch(1, req.MaskURL, &mask)
	if req.Fabric.TextureURL != "" {
		wg.Add(1)
		go fetch(2, req.Fabric.TextureURL, &texture)
	}
	wg.Wait()

	if err = errors.Join(errs[:]...); err != nil {
		return nil, nil, nil, err
	}
	return photo, mask, texture, nil
}

// RenderTexture re-skins the upholstery area of photo. mask marks the area in
// white; texture may be nil for a flat colour. The photo is kept at native
// resolution as the base layer, the fabric layer is cut to the mask and
// composited with a full-strength colour blend followed by a faint overlay.
// Identical inputs give identical output.
func RenderTexture(photo, mask image.Image, fabric catalog.Fabric, texture image.Image, opts Options) (*image.NRGBA, error) {
	out := imaging.Clone(photo)
	cov, err := fitMask(mask, out.Bounds())
	if err != nil {
		return nil, err
	}
	layer := FabricLayer(out.Bounds(), fabric, texture, opts.TileFraction)
	blend.SourceIn(layer, cov)
	reskin(out, layer, 1, opts.OverlayOpacity)
	return out, nil
}

// fitMask converts mask to binary coverage of size b. A mask authored at a
// different resolution is resampled if its aspect ratio agrees with the
// photo's.
func fitMask(mask image.Image, b image.Rectangle) (*image.Alpha, error) {
	cov := blend.Coverage(mask)
	mb := cov.Bounds()
	if mb.Empty() || b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrMaskMismatch)
	}
	if mb.Size() != b.Size() {
		pa := float64(b.Dx()) / float64(b.Dy())
		ma := float64(mb.Dx()) / float64(mb.Dy())
		if math.Abs(ma-pa)/pa > maxAspectDrift {
			return nil, fmt.Errorf("%w: mask %dx%d, photo %dx%d",
				ErrMaskMismatch, mb.Dx(), mb.Dy(), b.Dx(), b.Dy())
		}
		scaled := image.NewAlpha(b)
		draw.NearestNeighbor.Scale(scaled, b, cov, mb, draw.Src, nil)
		cov = scaled
	}
	blend.Threshold(cov)
	return cov, nil
}
