package router

import (
	"github.com/fsuperadmin/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// CollectionRoutes builds the /collections route group. submitGuards run in
// front of the two submit endpoints only.
func CollectionRoutes(h *handler.CollectionHandler, submitGuards ...gin.HandlerFunc) *DomainGroup {
	submit := func(final gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(submitGuards)+1)
		chain = append(chain, submitGuards...)
		return append(chain, final)
	}

	collections := NewDomainGroup("collections", "/collections")
	collections.GET("/pending", h.ListPending)
	collections.GET("/history", h.ListHistory)
	collections.DELETE("/records/:record_id", h.DeleteRecord)

	batch := collections.Group("batch", "/batch")
	batch.POST("", h.OpenBatch)
	batch.GET("/:id", h.GetBatch)
	batch.POST("/:id/sales/:sale_id/toggle", h.ToggleSale)
	batch.PUT("/:id/amounts", h.SetBatchAmount)
	batch.PUT("/:id/details", h.SetBatchDetails)
	batch.POST("/:id/submit", submit(h.SubmitBatch)...)
	batch.DELETE("/:id", h.CloseBatch)

	partial := collections.Group("partial", "/partial")
	partial.POST("", h.OpenPartial)
	partial.GET("/:id", h.GetPartial)
	partial.PUT("/:id/amounts", h.SetPartialAmount)
	partial.PUT("/:id/details", h.SetPartialDetails)
	partial.POST("/:id/submit", submit(h.SubmitPartial)...)
	partial.DELETE("/:id", h.ClosePartial)

	return collections
}

// SystemRoutes builds the /system route group
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.GetSystemInfo)
	system.GET("/ping", h.Ping)
	return system
}
