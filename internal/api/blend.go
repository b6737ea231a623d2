package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/compose"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

type blendView struct {
	ID        string  `json:"id"`
	HasPhoto  bool    `json:"has_photo"`
	FabricID  string  `json:"fabric_id,omitempty"`
	Intensity float64 `json:"intensity"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

func blendStatus(id string, d *compose.DirectBlend) blendView {
	v := blendView{ID: id, HasPhoto: d.HasPhoto(), Intensity: d.Intensity()}
	if f, ok := d.Fabric(); ok {
		v.FabricID = f.ID
	}
	if img := d.Image(); img != nil {
		v.Width, v.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	return v
}

func (h *Handler) blendSession(c *gin.Context) (*compose.DirectBlend, bool) {
	d, err := h.blendSessions.Get(c.Param("id"))
	if err != nil {
		fail(c, "blend session not found", err)
		return nil, false
	}
	return d, true
}

// createBlendSession takes a multipart form with the user's photo, the
// fabric id and an optional intensity.
func (h *Handler) createBlendSession(c *gin.Context) {
	r, err := h.readUpload(c, "photo")
	if err != nil {
		fail(c, "please upload a photo", err)
		return
	}
	fabric, texture, err := h.loadFabric(c.Request.Context(), c.PostForm("fabric_id"))
	if err != nil {
		fail(c, "fabric not found", err)
		return
	}

	d := compose.NewDirectBlend(h.composeOptions(), h.enc)
	if v := c.PostForm("intensity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(c, "invalid intensity", fmt.Errorf("%w: %w", errBadInput, err))
			return
		}
		d.SetIntensity(f)
	}
	d.SetFabric(fabric, texture)
	if err := d.LoadPhoto(r); err != nil {
		fail(c, "could not read the photo", fmt.Errorf("%w: %w", errBadInput, err))
		return
	}
	id := h.blendSessions.Create(d)
	util.Logger.Info("blend session opened", zap.String("session", id), zap.String("fabric", fabric.ID))
	ok(c, http.StatusCreated, "", blendStatus(id, d))
}

// updateBlendSession changes intensity and/or fabric; each change re-renders
// from the original photo.
func (h *Handler) updateBlendSession(c *gin.Context) {
	d, found := h.blendSession(c)
	if !found {
		return
	}
	var req struct {
		Intensity *float64 `json:"intensity"`
		FabricID  *string  `json:"fabric_id"`
	}
	if err := bind(c, &req); err != nil {
		fail(c, "invalid settings", err)
		return
	}
	if req.FabricID != nil {
		fabric, texture, err := h.loadFabric(c.Request.Context(), *req.FabricID)
		if err != nil {
			fail(c, "fabric not found", err)
			return
		}
		d.SetFabric(fabric, texture)
	}
	if req.Intensity != nil {
		d.SetIntensity(*req.Intensity)
	}
	ok(c, http.StatusOK, "", blendStatus(c.Param("id"), d))
}

// blendPhoto replaces the photo, typically after a reset.
func (h *Handler) blendPhoto(c *gin.Context) {
	d, found := h.blendSession(c)
	if !found {
		return
	}
	r, err := h.readUpload(c, "photo")
	if err != nil {
		fail(c, "please upload a photo", err)
		return
	}
	if err := d.LoadPhoto(r); err != nil {
		fail(c, "could not read the photo", fmt.Errorf("%w: %w", errBadInput, err))
		return
	}
	ok(c, http.StatusOK, "", blendStatus(c.Param("id"), d))
}

func (h *Handler) blendImage(c *gin.Context) {
	d, found := h.blendSession(c)
	if !found {
		return
	}
	img := d.Image()
	if img == nil {
		fail(c, "no photo loaded", compose.ErrNoPhoto)
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	h.sendImage(c, img, format)
}

func (h *Handler) blendExport(c *gin.Context) {
	d, found := h.blendSession(c)
	if !found {
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}
	data, name, err := d.Export(format)
	if err != nil {
		fail(c, "export failed, please try again", err)
		return
	}
	sendDownload(c, data, name, format)
}

func (h *Handler) blendReset(c *gin.Context) {
	d, found := h.blendSession(c)
	if !found {
		return
	}
	d.Reset()
	ok(c, http.StatusOK, "", blendStatus(c.Param("id"), d))
}

func (h *Handler) deleteBlendSession(c *gin.Context) {
	deleted(c, h.blendSessions.Delete(c.Param("id")))
}
