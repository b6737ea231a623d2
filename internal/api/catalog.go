package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/catalog"
	"github.com/youruser/fabricview/internal/compose"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"mask_sessions":  h.maskSessions.Len(),
		"previews":       h.previews.Len(),
		"blend_sessions": h.blendSessions.Len(),
		"scene_sessions": h.scenes.Len(),
	})
}

func (h *Handler) listFabrics(c *gin.Context) {
	out := h.catalog.Fabrics(catalog.FilterOptions{
		Families:  c.QueryArray("family"),
		FreeWords: c.Query("q"),
	})
	c.JSON(http.StatusOK, gin.H{"count": len(out), "fabrics": out})
}

func (h *Handler) listProducts(c *gin.Context) {
	out := h.catalog.Products()
	c.JSON(http.StatusOK, gin.H{"count": len(out), "products": out})
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.catalog.Product(c.Param("id"))
	if err != nil {
		fail(c, "product not found", err)
		return
	}
	ok(c, http.StatusOK, "", p)
}

// productPreview renders the product re-skinned with a fabric in one shot.
// Renders are deterministic, so encoded results are cached by their inputs.
func (h *Handler) productPreview(c *gin.Context) {
	p, err := h.catalog.Product(c.Param("id"))
	if err != nil {
		fail(c, "product not found", err)
		return
	}
	if p.MaskURL == "" {
		fail(c, "no preview available", fmt.Errorf("%w: product %s has no mask", compose.ErrNoPreview, p.ID))
		return
	}
	fabric, err := h.catalog.Fabric(c.Query("fabric"))
	if err != nil {
		fail(c, "fabric not found", err)
		return
	}
	format, err := h.exportFormat(c)
	if err != nil {
		fail(c, "unsupported format", err)
		return
	}

	ctx := c.Request.Context()
	key := util.KeyMD5(p.ImageURL, p.MaskURL, fabric.Color, fabric.TextureURL, string(format))
	cached, err := h.cache.Get(ctx, key)
	if err != nil {
		util.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cached != nil {
		c.Header("X-Cache", "hit")
		c.Data(http.StatusOK, format.ContentType(), cached)
		return
	}

	tc := compose.NewTextureComposer(h.loader, h.composeOptions())
	view, err := tc.Render(ctx, compose.Request{PhotoURL: p.ImageURL, MaskURL: p.MaskURL, Fabric: fabric})
	if err != nil {
		fail(c, "no preview available", err)
		return
	}
	data, err := h.enc.Bytes(view.Image, format)
	if err != nil {
		fail(c, "failed to encode preview", err)
		return
	}
	if err := h.cache.Set(ctx, key, data); err != nil {
		util.Logger.Warn("failed to set cache", zap.Error(err))
	}
	c.Header("X-Cache", "miss")
	c.Data(http.StatusOK, format.ContentType(), data)
}

// productQR returns a PNG QR code linking to the product page.
func (h *Handler) productQR(c *gin.Context) {
	p, err := h.catalog.Product(c.Param("id"))
	if err != nil {
		fail(c, "product not found", err)
		return
	}
	size := 400
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v >= 64 && v <= 2048 {
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(h.productLink(p.ID), size)
	if err != nil {
		fail(c, "failed to generate qr code", err)
		return
	}
	c.Data(http.StatusOK, imagepkg.PNG.ContentType(), b)
}
