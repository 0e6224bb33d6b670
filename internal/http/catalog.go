package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/drillstock/internal/http/middleware"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/service"
)

func (h *Handler) registerCatalog(group *gin.RouterGroup) {
	products := group.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/low-stock", h.lowStock)
	products.POST("", h.createProduct)
	products.GET("/:id", h.getProduct)
	products.PATCH("/:id", h.updateProduct)
	products.DELETE("/:id", h.deleteProduct)
	products.POST("/:id/restore", h.restoreProduct)

	workers := group.Group("/workers")
	workers.GET("", h.listWorkers)
	workers.POST("", h.createWorker)
	workers.PATCH("/:id", h.renameWorker)
	workers.DELETE("/:id", middleware.RequireAdmin(), h.deleteWorker)
}

type createProductRequest struct {
	InternalSKU   string  `json:"internal_sku" binding:"required"`
	SupplierSKU   *string `json:"supplier_sku"`
	Name          string  `json:"name" binding:"required"`
	Unit          string  `json:"unit"`
	PurchasePrice float64 `json:"purchase_price"`
	RetailPrice   float64 `json:"retail_price"`
	StockQuantity float64 `json:"stock_quantity"`
	MinStockLevel float64 `json:"min_stock_level"`
	IsFavorite    bool    `json:"is_favorite"`
}

type updateProductRequest struct {
	Name          *string  `json:"name"`
	SupplierSKU   *string  `json:"supplier_sku"`
	PurchasePrice *float64 `json:"purchase_price"`
	RetailPrice   *float64 `json:"retail_price"`
	MinStockLevel *float64 `json:"min_stock_level"`
	IsFavorite    *bool    `json:"is_favorite"`
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) lowStock(c *gin.Context) {
	products, err := h.catalog.LowStock(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req createProductRequest
	if !bindJSON(c, &req) {
		return
	}
	unit := model.Unit(strings.TrimSpace(req.Unit))
	if unit == "" {
		unit = model.UnitPiece
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), service.ProductInput{
		InternalSKU:   req.InternalSKU,
		SupplierSKU:   req.SupplierSKU,
		Name:          req.Name,
		Unit:          unit,
		PurchasePrice: req.PurchasePrice,
		RetailPrice:   req.RetailPrice,
		InitialStock:  req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
		IsFavorite:    req.IsFavorite,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, service.ProductUpdate{
		Name:          req.Name,
		SupplierSKU:   req.SupplierSKU,
		PurchasePrice: req.PurchasePrice,
		RetailPrice:   req.RetailPrice,
		MinStockLevel: req.MinStockLevel,
		IsFavorite:    req.IsFavorite,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.SoftDeleteProduct(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) restoreProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.RestoreProduct(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createWorkerRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) listWorkers(c *gin.Context) {
	workers, err := h.catalog.ListWorkers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, workers)
}

func (h *Handler) createWorker(c *gin.Context) {
	var req createWorkerRequest
	if !bindJSON(c, &req) {
		return
	}
	worker, err := h.catalog.CreateWorker(c.Request.Context(), req.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worker)
}

func (h *Handler) renameWorker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createWorkerRequest
	if !bindJSON(c, &req) {
		return
	}
	worker, err := h.catalog.RenameWorker(c.Request.Context(), id, req.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, worker)
}

func (h *Handler) deleteWorker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteWorker(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
