package router

import "github.com/erp/procurement/internal/interfaces/http/handler"

// PurchaseOrderRoutes declares the purchase order resource
func PurchaseOrderRoutes(h *handler.PurchaseOrderHandler) *DomainGroup {
	orders := NewDomainGroup("procurement", "/purchase-orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/by-number/:orderNumber", h.GetByOrderNumber)
	orders.GET("/:id", h.GetByID)
	orders.PATCH("/:id", h.Update)
	orders.POST("/:id/status", h.ChangeStatus)
	orders.POST("/:id/receipts", h.ReceiveGoods)
	orders.POST("/:id/payments", h.AddPayment)
	orders.POST("/:id/returns", h.CreateReturn)
	orders.POST("/:id/returns/:returnId/status", h.ChangeReturnStatus)
	return orders
}

// SystemRoutes declares the health and info endpoints under the API prefix
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.Health)
	system.GET("/system/info", h.GetSystemInfo)
	system.GET("/system/ping", h.Ping)
	return system
}
