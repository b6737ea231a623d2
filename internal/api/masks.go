package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/mask"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

type maskSession struct {
	productID string
	author    *mask.Author
}

type maskSessionView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	mask.Status
}

func (h *Handler) maskSession(c *gin.Context) (*maskSession, bool) {
	s, err := h.maskSessions.Get(c.Param("id"))
	if err != nil {
		fail(c, "mask session not found", err)
		return nil, false
	}
	return s, true
}

func maskView(id string, s *maskSession) maskSessionView {
	return maskSessionView{ID: id, ProductID: s.productID, Status: s.author.Status()}
}

// createMaskSession opens the authoring tool on a product, resuming its
// current mask if it has one. A product photo that fails to load still
// yields a session, in the failed state.
func (h *Handler) createMaskSession(c *gin.Context) {
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

	a := mask.Open(c.Request.Context(), h.loader, p.ImageURL, p.MaskURL, h.maskOptions())
	s := &maskSession{productID: p.ID, author: a}
	id := h.maskSessions.Create(s)
	util.Logger.Info("mask session opened",
		zap.String("session", id), zap.String("product", p.ID), zap.Bool("resume", p.MaskURL != ""))

	ok(c, http.StatusCreated, "", maskView(id, s))
}

func (h *Handler) getMaskSession(c *gin.Context) {
	if s, found := h.maskSession(c); found {
		ok(c, http.StatusOK, "", maskView(c.Param("id"), s))
	}
}

func (h *Handler) maskOverlay(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	img := s.author.Overlay()
	if img == nil {
		fail(c, "product photo not loaded", mask.ErrNotReady)
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	h.sendImage(c, img, format)
}

type pointerEvent struct {
	Type    string  `json:"type"`
	Pointer int     `json:"pointer"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// maskEvents applies a batch of pointer events in order.
func (h *Handler) maskEvents(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	var req struct {
		DisplayWidth  float64        `json:"display_width"`
		DisplayHeight float64        `json:"display_height"`
		Events        []pointerEvent `json:"events"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid events", err)
		return
	}
	events := make([]mask.Event, 0, len(req.Events))
	for _, e := range req.Events {
		kind, err := mask.ParseEventKind(e.Type)
		if err != nil {
			fail(c, "invalid events", fmt.Errorf("%w: %w", errBadInput, err))
			return
		}
		events = append(events, mask.Event{Kind: kind, Pointer: e.Pointer, X: e.X, Y: e.Y})
	}

	vp := mask.Viewport{Width: req.DisplayWidth, Height: req.DisplayHeight}
	applied := 0
	for _, e := range events {
		if s.author.Handle(e, vp) {
			applied++
		}
	}
	ok(c, http.StatusOK, "", gin.H{"applied": applied, "session": maskView(c.Param("id"), s)})
}

func (h *Handler) maskTool(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	var req struct {
		Tool      *string `json:"tool"`
		BrushSize *int    `json:"brush_size"`
		Grow      bool    `json:"grow"`
		Shrink    bool    `json:"shrink"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid tool settings", err)
		return
	}
	if req.Tool != nil {
		t, err := mask.ParseTool(*req.Tool)
		if err != nil {
			fail(c, "invalid tool settings", fmt.Errorf("%w: %w", errBadInput, err))
			return
		}
		s.author.SetTool(t)
	}
	if req.BrushSize != nil {
		s.author.SetBrushSize(*req.BrushSize)
	}
	if req.Grow {
		s.author.GrowBrush()
	}
	if req.Shrink {
		s.author.ShrinkBrush()
	}
	ok(c, http.StatusOK, "", maskView(c.Param("id"), s))
}

func (h *Handler) maskVisibility(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	var req struct {
		Visible bool `json:"visible"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid visibility", err)
		return
	}
	s.author.SetVisible(req.Visible)
	ok(c, http.StatusOK, "", maskView(c.Param("id"), s))
}

func (h *Handler) maskClear(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	s.author.Clear()
	ok(c, http.StatusOK, "mask cleared", maskView(c.Param("id"), s))
}

// maskSave flattens the mask, stores it and points the product at it.
func (h *Handler) maskSave(c *gin.Context) {
	s, found := h.maskSession(c)
	if !found {
		return
	}
	res, err := s.author.Save()
	if err != nil {
		fail(c, "product photo not loaded", err)
		return
	}
	url, err := h.masks.Save(c.Request.Context(), s.productID, res.Image)
	if err != nil {
		fail(c, "failed to save mask", err)
		return
	}
	if err := h.catalog.SetMaskURL(s.productID, url); err != nil {
		if rerr := h.masks.Remove(url); rerr != nil {
			util.Logger.Warn("orphaned mask left behind", zap.String("mask", url), zap.Error(rerr))
		}
		fail(c, "failed to update product", err)
		return
	}
	util.Logger.Info("mask saved",
		zap.String("product", s.productID), zap.String("mask", url),
		zap.Int("width", res.Width), zap.Int("height", res.Height))
	ok(c, http.StatusOK, "mask saved", gin.H{"mask_url": url, "width": res.Width, "height": res.Height})
}

func (h *Handler) deleteMaskSession(c *gin.Context) {
	id := c.Param("id")
	existed := h.maskSessions.Delete(id)
	if existed {
		util.Logger.Info("mask session closed", zap.String("session", id))
	}
	deleted(c, existed)
}
