package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/service"
)

const exportPageSize = 500

func (h *Handler) registerActions(group *gin.RouterGroup) {
	actions := group.Group("/actions")
	actions.POST("/receive", h.receive)
	actions.POST("/issue", h.issue)
	actions.POST("/return", h.returnFromWorker)
	actions.POST("/adjust", h.adjust)
	actions.POST("/write-off-worker", h.writeOffFromWorker)

	group.GET("/movements", h.listMovements)
	group.GET("/movements/export", h.exportMovements)
	group.POST("/movements/:id/cancel", h.cancelMovement)

	group.GET("/workers/:id/stock", h.workerStock)
	group.GET("/workers/:id/stock/export", h.exportWorkerStock)
	group.GET("/workers/:id/custody/:productId", h.custodyBalance)
	group.GET("/products/:id/balance", h.productBalance)
}

type stockRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity"`
}

type custodyRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	WorkerID  string  `json:"worker_id" binding:"required"`
	Quantity  float64 `json:"quantity"`
}

type adjustRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Delta     float64 `json:"delta"`
}

type custodyFunc func(ctx context.Context, productID, workerID uuid.UUID, quantity float64) (*model.Movement, error)

func (h *Handler) receive(c *gin.Context) {
	var req stockRequest
	if !bindJSON(c, &req) {
		return
	}
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	movement, err := h.ledger.Receive(c.Request.Context(), productID, req.Quantity)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *Handler) adjust(c *gin.Context) {
	var req adjustRequest
	if !bindJSON(c, &req) {
		return
	}
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	movement, err := h.ledger.Adjust(c.Request.Context(), productID, req.Delta)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *Handler) issue(c *gin.Context) {
	h.custodyAction(c, h.ledger.Issue)
}

func (h *Handler) returnFromWorker(c *gin.Context) {
	h.custodyAction(c, h.ledger.Return)
}

func (h *Handler) writeOffFromWorker(c *gin.Context) {
	h.custodyAction(c, func(ctx context.Context, productID, workerID uuid.UUID, quantity float64) (*model.Movement, error) {
		return h.ledger.WriteOffFromWorker(ctx, workerID, productID, quantity)
	})
}

func (h *Handler) custodyAction(c *gin.Context, action custodyFunc) {
	var req custodyRequest
	if !bindJSON(c, &req) {
		return
	}
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	workerID, err := parseID(req.WorkerID, "worker_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	movement, err := action(c.Request.Context(), productID, workerID, req.Quantity)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *Handler) cancelMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reversal, err := h.ledger.CancelMovement(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reversal)
}

func historyQuery(c *gin.Context) (service.HistoryQuery, error) {
	q := service.HistoryQuery{Search: strings.TrimSpace(c.Query("search"))}
	var err error
	if q.ProductID, err = queryID(c, "product_id"); err != nil {
		return q, err
	}
	if q.WorkerID, err = queryID(c, "worker_id"); err != nil {
		return q, err
	}
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, ok := model.ParseMovementKind(raw)
		if !ok {
			return q, errors.New("invalid kind")
		}
		q.Kind = &kind
	}
	if q.From, err = queryDate(c, "date_from"); err != nil {
		return q, err
	}
	if q.To, err = queryDate(c, "date_to"); err != nil {
		return q, err
	}
	if q.To != nil && len(strings.TrimSpace(c.Query("date_to"))) == len("2006-01-02") {
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		q.To = &end
	}
	if q.Page, q.Limit, err = pageParams(c); err != nil {
		return q, err
	}
	return q, nil
}

func (h *Handler) listMovements(c *gin.Context) {
	q, err := historyQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	page, err := h.ledger.History(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) exportMovements(c *gin.Context) {
	q, err := historyQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var rows []model.MovementView
	q.Limit = exportPageSize
	for q.Page = 1; ; q.Page++ {
		page, err := h.ledger.History(c.Request.Context(), q)
		if err != nil {
			h.handleError(c, err)
			return
		}
		rows = append(rows, page.Items...)
		if len(page.Items) < exportPageSize || int64(len(rows)) >= page.Total {
			break
		}
	}

	content, err := h.excel.History(rows)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, contentTypeXLSX, "movements_"+time.Now().Format("20060102")+".xlsx", content)
}

func (h *Handler) workerStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	worker, lines, err := h.ledger.WorkerStock(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"worker": worker, "items": lines})
}

func (h *Handler) exportWorkerStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	worker, lines, err := h.ledger.WorkerStock(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.excel.WorkerStock(worker, lines)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, contentTypeXLSX, "worker_stock_"+worker.ID.String()+".xlsx", content)
}

func (h *Handler) custodyBalance(c *gin.Context) {
	workerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	balance, err := h.ledger.CustodyBalance(c.Request.Context(), workerID, productID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"worker_id": workerID, "product_id": productID, "quantity_on_hand": balance})
}

func (h *Handler) productBalance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cached, err := h.ledger.GlobalBalance(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ledger, err := h.ledger.RecomputeBalance(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock_quantity": cached, "ledger_quantity": ledger})
}
