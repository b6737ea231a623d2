package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/scene"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

type sceneSession struct {
	productID string
	composer  *scene.Composer
}

type sceneView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	scene.Status
}

func sceneStatus(id string, s *sceneSession) sceneView {
	return sceneView{ID: id, ProductID: s.productID, Status: s.composer.Status()}
}

func (h *Handler) sceneSession(c *gin.Context) (*sceneSession, bool) {
	s, err := h.scenes.Get(c.Param("id"))
	if err != nil {
		fail(c, "scene session not found", err)
		return nil, false
	}
	return s, true
}

// createSceneSession starts a room preview for a product. The product
// cut-out is its catalog photo; if it cannot be loaded the scene still works
// with the room photo alone.
func (h *Handler) createSceneSession(c *gin.Context) {
	var req struct {
		ProductID string  `json:"product_id" binding:"required"`
		Width     float64 `json:"width"`
		Height    float64 `json:"height"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "product_id is required", err)
		return
	}
	p, err := h.catalog.Product(req.ProductID)
	if err != nil {
		fail(c, "product not found", err)
		return
	}

	sc := scene.New(h.sceneOptions(), h.enc)
	if req.Width != 0 || req.Height != 0 {
		if err := sc.SetViewport(req.Width, req.Height); err != nil {
			fail(c, "invalid viewport", err)
			return
		}
	}
	img, err := h.loader.Load(c.Request.Context(), p.ImageURL)
	if err != nil {
		util.Logger.Warn("product cut-out load failed",
			zap.String("product", p.ID), zap.String("image", p.ImageURL), zap.Error(err))
		sc.SetProduct(nil, p.Name)
	} else {
		sc.SetProduct(img, p.Name)
	}

	s := &sceneSession{productID: p.ID, composer: sc}
	id := h.scenes.Create(s)
	ok(c, http.StatusCreated, "", sceneStatus(id, s))
}

func (h *Handler) getSceneSession(c *gin.Context) {
	if s, found := h.sceneSession(c); found {
		ok(c, http.StatusOK, "", sceneStatus(c.Param("id"), s))
	}
}

func (h *Handler) scenePhoto(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	r, err := h.readUpload(c, "photo")
	if err != nil {
		fail(c, "please upload a photo", err)
		return
	}
	if err := s.composer.LoadPhoto(r); err != nil {
		fail(c, "could not read the photo", fmt.Errorf("%w: %w", errBadInput, err))
		return
	}
	ok(c, http.StatusOK, "", sceneStatus(c.Param("id"), s))
}

type sceneEvent struct {
	Type    string  `json:"type"`
	Pointer int     `json:"pointer"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Delta   float64 `json:"delta"`
}

// sceneEvents applies a batch of pointer events in container coordinates.
func (h *Handler) sceneEvents(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	var req struct {
		Events []sceneEvent `json:"events"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid events", err)
		return
	}
	applied := 0
	for _, e := range req.Events {
		p := scene.Pointer{ID: e.Pointer, X: e.X, Y: e.Y}
		var changed bool
		switch e.Type {
		case "press", "down", "start":
			changed = s.composer.Press(p)
		case "move":
			changed = s.composer.Move(p)
		case "release", "up", "end", "leave", "cancel":
			changed = s.composer.Release(p)
		case "wheel":
			changed = s.composer.Wheel(e.X, e.Y, e.Delta)
		default:
			fail(c, "invalid events", fmt.Errorf("%w: unknown event %q", errBadInput, e.Type))
			return
		}
		if changed {
			applied++
		}
	}
	ok(c, http.StatusOK, "", gin.H{"applied": applied, "session": sceneStatus(c.Param("id"), s)})
}

// sceneControls handles the zoom and size buttons and sliders.
func (h *Handler) sceneControls(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	var req struct {
		Action string  `json:"action" binding:"required"`
		Value  float64 `json:"value"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid control", err)
		return
	}
	sc := s.composer
	switch req.Action {
	case "zoom_in":
		sc.ZoomIn()
	case "zoom_out":
		sc.ZoomOut()
	case "zoom":
		sc.SetZoom(req.Value)
	case "grow":
		sc.GrowProduct()
	case "shrink":
		sc.ShrinkProduct()
	case "size":
		sc.SetProductSize(req.Value)
	case "position":
		sc.SetProductPosition(req.X, req.Y)
	case "viewport":
		if err := sc.SetViewport(req.X, req.Y); err != nil {
			fail(c, "invalid viewport", err)
			return
		}
	default:
		fail(c, "invalid control", fmt.Errorf("%w: unknown action %q", errBadInput, req.Action))
		return
	}
	ok(c, http.StatusOK, "", sceneStatus(c.Param("id"), s))
}

func (h *Handler) scenePreview(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	img, err := s.composer.Preview()
	if err != nil {
		fail(c, "no room photo loaded", err)
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	h.sendImage(c, img, format)
}

// sceneExport downloads the supersampled scene. ?qr=1 stamps a QR code
// linking to the product page.
func (h *Handler) sceneExport(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	var qrText string
	if withQR, _ := strconv.ParseBool(c.Query("qr")); withQR {
		qrText = h.productLink(s.productID)
	}
	data, name, err := s.composer.Export(format, qrText)
	if err != nil {
		fail(c, "export failed, please try again", err)
		return
	}
	sendDownload(c, data, name, format)
}

func (h *Handler) sceneReset(c *gin.Context) {
	s, found := h.sceneSession(c)
	if !found {
		return
	}
	s.composer.Reset()
	ok(c, http.StatusOK, "", sceneStatus(c.Param("id"), s))
}

func (h *Handler) deleteSceneSession(c *gin.Context) {
	deleted(c, h.scenes.Delete(c.Param("id")))
}
