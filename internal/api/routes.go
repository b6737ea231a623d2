package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/fabrics", h.listFabrics)
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.GET("/products/:id/preview", h.productPreview)
		api.GET("/products/:id/qr", h.productQR)

		masks := api.Group("/mask-sessions")
		masks.POST("", h.createMaskSession)
		masks.GET("/:id", h.getMaskSession)
		masks.GET("/:id/overlay", h.maskOverlay)
		masks.POST("/:id/events", h.maskEvents)
		masks.POST("/:id/tool", h.maskTool)
		masks.POST("/:id/visibility", h.maskVisibility)
		masks.POST("/:id/clear", h.maskClear)
		masks.POST("/:id/save", h.maskSave)
		masks.DELETE("/:id", h.deleteMaskSession)

		previews := api.Group("/previews")
		previews.POST("", h.createPreview)
		previews.PUT("/:id/fabric", h.previewFabric)
		previews.GET("/:id", h.getPreview)
		previews.GET("/:id/image", h.previewImage)
		previews.DELETE("/:id", h.deletePreview)

		blends := api.Group("/blend-sessions")
		blends.POST("", h.createBlendSession)
		blends.PUT("/:id", h.updateBlendSession)
		blends.POST("/:id/photo", h.blendPhoto)
		blends.GET("/:id/image", h.blendImage)
		blends.GET("/:id/export", h.blendExport)
		blends.POST("/:id/reset", h.blendReset)
		blends.DELETE("/:id", h.deleteBlendSession)

		scenes := api.Group("/scene-sessions")
		scenes.POST("", h.createSceneSession)
		scenes.GET("/:id", h.getSceneSession)
		scenes.POST("/:id/photo", h.scenePhoto)
		scenes.POST("/:id/events", h.sceneEvents)
		scenes.POST("/:id/controls", h.sceneControls)
		scenes.GET("/:id/preview", h.scenePreview)
		scenes.GET("/:id/export", h.sceneExport)
		scenes.POST("/:id/reset", h.sceneReset)
		scenes.DELETE("/:id", h.deleteSceneSession)
	}
}
