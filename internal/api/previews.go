package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/catalog"
	"github.com/youruser/fabricview/internal/compose"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

// previewSession follows one product page: every fabric selection submits
// a new render and only the latest one is ever shown.
type previewSession struct {
	product  catalog.Product
	composer *compose.TextureComposer
}

type previewView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	State     string `json:"state"`
	Token     uint64 `json:"token"`
}

func previewStatus(id string, s *previewSession) previewView {
	v := s.composer.Current()
	return previewView{ID: id, ProductID: s.product.ID, State: v.State.String(), Token: v.Token}
}

func (h *Handler) previewSession(c *gin.Context) (*previewSession, bool) {
	s, err := h.previews.Get(c.Param("id"))
	if err != nil {
		fail(c, "preview not found", err)
		return nil, false
	}
	return s, true
}

func (h *Handler) createPreview(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
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
	s := &previewSession{product: p, composer: compose.NewTextureComposer(h.loader, h.composeOptions())}
	id := h.previews.Create(s)
	ok(c, http.StatusCreated, "", previewStatus(id, s))
}

// previewFabric selects a fabric. The render runs in the background; poll
// the preview for its state.
func (h *Handler) previewFabric(c *gin.Context) {
	s, found := h.previewSession(c)
	if !found {
		return
	}
	var req struct {
		FabricID string `json:"fabric_id" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "fabric_id is required", err)
		return
	}
	fabric, err := h.catalog.Fabric(req.FabricID)
	if err != nil {
		fail(c, "fabric not found", err)
		return
	}
	// the mask may have been re-authored since the session opened
	p := s.product
	if fresh, err := h.catalog.Product(p.ID); err == nil {
		p = fresh
	}
	tok := s.composer.Submit(compose.Request{
		PhotoURL: p.ImageURL,
		MaskURL:  p.MaskURL,
		Fabric:   fabric,
	})
	util.Logger.Debug("preview render submitted",
		zap.String("product", p.ID), zap.String("fabric", fabric.ID), zap.Uint64("token", tok))
	ok(c, http.StatusAccepted, "", gin.H{"token": tok})
}

func (h *Handler) getPreview(c *gin.Context) {
	if s, found := h.previewSession(c); found {
		ok(c, http.StatusOK, "", previewStatus(c.Param("id"), s))
	}
}

func (h *Handler) previewImage(c *gin.Context) {
	s, found := h.previewSession(c)
	if !found {
		return
	}
	v := s.composer.Current()
	switch v.State {
	case compose.Ready:
	case compose.Pending:
		c.JSON(http.StatusAccepted, previewStatus(c.Param("id"), s))
		return
	default:
		fail(c, "no preview available", compose.ErrNoPreview)
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	h.sendImage(c, v.Image, format)
}

func (h *Handler) deletePreview(c *gin.Context) {
	deleted(c, h.previews.Delete(c.Param("id")))
}
