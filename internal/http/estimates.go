package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/service"
)

func (h *Handler) registerEstimates(group *gin.RouterGroup) {
	estimates := group.Group("/estimates")
	estimates.GET("", h.listEstimates)
	estimates.POST("", h.createEstimate)
	estimates.GET("/:id", h.getEstimate)
	estimates.PATCH("/:id", h.updateEstimate)
	estimates.DELETE("/:id", h.deleteEstimate)

	estimates.POST("/:id/approve", h.estimateTransition(h.estimates.Approve))
	estimates.POST("/:id/ship", h.shipEstimate)
	estimates.POST("/:id/reopen", h.reopenEstimate)
	estimates.POST("/:id/issue-additional", h.issueAdditional)
	estimates.POST("/:id/complete", h.estimateTransition(h.estimates.Complete))
	estimates.POST("/:id/cancel-completion", h.estimateTransition(h.estimates.CancelCompletion))
	estimates.POST("/:id/cancel", h.estimateTransition(h.estimates.Cancel))

	estimates.PATCH("/:id/items/:itemId", h.updateEstimateItem)
	estimates.DELETE("/:id/items/:itemId", h.deleteEstimateItem)
}

type itemRequest struct {
	ProductID string   `json:"product_id" binding:"required"`
	Quantity  float64  `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

type createEstimateRequest struct {
	Number     string        `json:"estimate_number" binding:"required"`
	ClientName string        `json:"client_name" binding:"required"`
	Location   *string       `json:"location"`
	Items      []itemRequest `json:"items"`
}

type updateEstimateRequest struct {
	Number     *string        `json:"estimate_number"`
	ClientName *string        `json:"client_name"`
	Location   *string        `json:"location"`
	Items      *[]itemRequest `json:"items"`
}

type workerRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
}

type itemsRequest struct {
	Items []itemRequest `json:"items" binding:"required"`
}

type updateItemRequest struct {
	Quantity  *float64 `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

func toItemInputs(items []itemRequest) ([]service.ItemInput, error) {
	inputs := make([]service.ItemInput, 0, len(items))
	for _, item := range items {
		productID, err := parseID(item.ProductID, "product_id")
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, service.ItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return inputs, nil
}

func (h *Handler) listEstimates(c *gin.Context) {
	page, limit, err := pageParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	q := service.EstimateQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   page,
		Limit:  limit,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.EstimateStatus(strings.ToUpper(raw))
		q.Status = &status
	}
	result, err := h.estimates.List(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createEstimate(c *gin.Context) {
	var req createEstimateRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.estimates.Create(c.Request.Context(), service.EstimateInput{
		Number:     req.Number,
		ClientName: req.ClientName,
		Location:   req.Location,
		Items:      items,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) getEstimate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.estimates.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateEstimate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateEstimateRequest
	if !bindJSON(c, &req) {
		return
	}
	update := service.EstimateUpdate{
		Number:     req.Number,
		ClientName: req.ClientName,
		Location:   req.Location,
	}
	if req.Items != nil {
		items, err := toItemInputs(*req.Items)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		update.Items = &items
	}
	view, err := h.estimates.UpdateHeader(c.Request.Context(), id, update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) deleteEstimate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.estimates.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) estimateTransition(fn func(ctx context.Context, id uuid.UUID) (*model.EstimateView, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		view, err := fn(c.Request.Context(), id)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) shipEstimate(c *gin.Context) {
	h.handOver(c, h.estimates.Ship)
}

func (h *Handler) reopenEstimate(c *gin.Context) {
	h.handOver(c, h.estimates.Reopen)
}

func (h *Handler) handOver(c *gin.Context, fn func(ctx context.Context, id, workerID uuid.UUID) (*model.EstimateView, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req workerRequest
	if !bindJSON(c, &req) {
		return
	}
	workerID, err := parseID(req.WorkerID, "worker_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := fn(c.Request.Context(), id, workerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) issueAdditional(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req itemsRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.estimates.IssueAdditional(c.Request.Context(), id, items)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateEstimateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req updateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.estimates.UpdateItem(c.Request.Context(), id, itemID, service.ItemUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) deleteEstimateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	view, err := h.estimates.DeleteItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
