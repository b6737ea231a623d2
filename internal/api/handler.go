package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/catalog"
	"github.com/youruser/fabricview/internal/compose"
	"github.com/youruser/fabricview/internal/config"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/mask"
	"github.com/youruser/fabricview/internal/scene"
	"github.com/youruser/fabricview/internal/session"
	"github.com/youruser/fabricview/internal/store"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

// errBadInput marks request problems the caller can fix.
var errBadInput = errors.New("bad input")

// MaskStore persists a flattened mask and returns the address it is served at.
// Remove drops a mask that never got attached to its product.
type MaskStore interface {
	Save(ctx context.Context, productID string, mask *image.Gray) (string, error)
	Remove(url string) error
}

// Response wraps successful JSON payloads.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Handler serves the compositing tools. Each tool instance lives in its own
// registry until it is deleted.
type Handler struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	loader  imagepkg.Loader
	masks   MaskStore
	cache   store.PreviewCache
	enc     imagepkg.Encoder
	format  imagepkg.Format

	maskSessions  *session.Registry[*maskSession]
	previews      *session.Registry[*previewSession]
	blendSessions *session.Registry[*compose.DirectBlend]
	scenes        *session.Registry[*sceneSession]
}

// NewHandler wires the handler. A nil cache disables preview caching.
func NewHandler(cfg *config.Config, cat *catalog.Catalog, loader imagepkg.Loader, masks MaskStore, cache store.PreviewCache) *Handler {
	if cache == nil {
		cache = store.NopPreviewCache{}
	}
	format, err := imagepkg.ParseFormat(cfg.Export.Format, imagepkg.PNG)
	if err != nil {
		util.Logger.Warn("unknown export format, using png", zap.String("format", cfg.Export.Format))
		format = imagepkg.PNG
	}
	return &Handler{
		cfg:           cfg,
		catalog:       cat,
		loader:        loader,
		masks:         masks,
		cache:         cache,
		enc:           imagepkg.Encoder{JPEGQuality: cfg.Export.JPEGQuality},
		format:        format,
		maskSessions:  session.NewRegistry[*maskSession](),
		previews:      session.NewRegistry[*previewSession](),
		blendSessions: session.NewRegistry[*compose.DirectBlend](),
		scenes:        session.NewRegistry[*sceneSession](),
	}
}

func (h *Handler) maskOptions() mask.Options {
	m := h.cfg.Mask
	return mask.Options{
		MaxWidth:     m.MaxWidth,
		BrushMin:     m.BrushMin,
		BrushMax:     m.BrushMax,
		BrushDefault: m.BrushDefault,
		BrushStep:    m.BrushStep,
	}
}

func (h *Handler) composeOptions() compose.Options {
	c := h.cfg.Compose
	return compose.Options{
		TileFraction:     c.TileFraction,
		OverlayOpacity:   c.OverlayOpacity,
		DirectOverlay:    c.DirectOverlay,
		DefaultIntensity: c.DefaultIntensity,
		MaxPixels:        h.cfg.Upload.MaxPixels,
	}
}

func (h *Handler) sceneOptions() scene.Options {
	s := h.cfg.Scene
	return scene.Options{
		MaxDimension: s.MaxDimension,
		MaxViewport:  s.MaxViewport,
		MaxPixels:    h.cfg.Upload.MaxPixels,
		ZoomMin:      s.ZoomMin,
		ZoomMax:      s.ZoomMax,
		ZoomStep:     s.ZoomStep,
		WheelZoom:    s.WheelZoom,
		SizeMin:      s.SizeMin,
		SizeMax:      s.SizeMax,
		SizeDefault:  s.SizeDefault,
		SizeStep:     s.SizeStep,
		Supersample:  s.Supersample,
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, compose.ErrNoPreview):
		return http.StatusNotFound
	case errors.Is(err, mask.ErrNotReady),
		errors.Is(err, scene.ErrNoPhoto),
		errors.Is(err, compose.ErrNoPhoto):
		return http.StatusConflict
	case errors.Is(err, errBadInput),
		errors.Is(err, imagepkg.ErrUnsupportedFormat),
		errors.Is(err, imagepkg.ErrTooLarge),
		errors.Is(err, scene.ErrBadViewport):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail renders err as an ErrorResponse with message as the user-facing text.
func fail(c *gin.Context, message string, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		util.Logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(code, ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func ok(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Success: true, Message: message, Data: data})
}

// bind decodes a JSON body, reporting failures as bad input.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", errBadInput, err)
	}
	return nil
}

// readUpload reads a multipart image after checking its size and declared
// type. Uploads are kept in memory only.
func (h *Handler) readUpload(c *gin.Context, field string) (io.Reader, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s file: %w", errBadInput, field, err)
	}
	limit := h.cfg.Upload.MaxSize
	if file.Size > limit {
		return nil, fmt.Errorf("%w: file exceeds %d MB", errBadInput, limit/(1024*1024))
	}
	if ct := file.Header.Get("Content-Type"); !h.isAllowedType(ct) {
		return nil, fmt.Errorf("%w: unsupported file type %q", errBadInput, ct)
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: file exceeds %d MB", errBadInput, limit/(1024*1024))
	}
	return bytes.NewReader(data), nil
}

func (h *Handler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// exportFormat reads ?format=, defaulting to the configured export format.
func (h *Handler) exportFormat(c *gin.Context) (imagepkg.Format, error) {
	return imagepkg.ParseFormat(c.Query("format"), h.format)
}

// sendImage encodes img inline.
func (h *Handler) sendImage(c *gin.Context, img image.Image, f imagepkg.Format) {
	data, err := h.enc.Bytes(img, f)
	if err != nil {
		fail(c, "failed to encode image", err)
		return
	}
	c.Data(http.StatusOK, f.ContentType(), data)
}

// sendDownload serves data as an attachment named filename.
func sendDownload(c *gin.Context, data []byte, filename string, f imagepkg.Format) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, f.ContentType(), data)
}

// loadFabric resolves a fabric and its texture. A texture that fails to load
// falls back to the flat colour.
func (h *Handler) loadFabric(ctx context.Context, id string) (catalog.Fabric, image.Image, error) {
	f, err := h.catalog.Fabric(id)
	if err != nil {
		return catalog.Fabric{}, nil, err
	}
	if f.TextureURL == "" {
		return f, nil, nil
	}
	tex, err := h.loader.Load(ctx, f.TextureURL)
	if err != nil {
		util.Logger.Warn("fabric texture load failed, using flat colour",
			zap.String("fabric", f.ID), zap.String("texture", f.TextureURL), zap.Error(err))
		return f, nil, nil
	}
	return f, tex, nil
}

// productLink is the public product page address encoded into QR codes.
func (h *Handler) productLink(productID string) string {
	return strings.TrimSuffix(h.cfg.Server.PublicURL, "/") + "/products/" + productID
}

// deleted answers a DELETE with 204, or 404 if there was nothing to delete.
func deleted(c *gin.Context, existed bool) {
	if !existed {
		fail(c, "session not found", session.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
