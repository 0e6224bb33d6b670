package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/drillstock/internal/http/middleware"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/service"
)

func (h *Handler) registerContracts(group *gin.RouterGroup) {
	contracts := group.Group("/contracts")
	contracts.GET("", h.listContracts)
	contracts.POST("", h.createContract)
	contracts.POST("/write-off-pipes", middleware.RequireAdmin(), h.writeOffAllPipes)
	contracts.GET("/:id", h.getContract)
	contracts.PATCH("/:id", h.updateContract)
	contracts.DELETE("/:id", h.deleteContract)

	contracts.POST("/:id/start", h.contractTransition(h.contracts.Start))
	contracts.POST("/:id/cancel", h.contractTransition(h.contracts.Cancel))
	contracts.POST("/:id/write-off-pipes", h.writeOffPipes)
	contracts.POST("/:id/revenue", h.calculateRevenue)
	contracts.POST("/:id/quote", h.exportQuote)
}

type identityRequest struct {
	PassportSeriesNumber *string `json:"passport_series_number"`
	PassportIssuedBy     *string `json:"passport_issued_by"`
	PassportIssueDate    *string `json:"passport_issue_date"`
	PassportDepCode      *string `json:"passport_dep_code"`
	PassportAddress      *string `json:"passport_address"`
}

func (r identityRequest) toModel() model.ClientIdentity {
	return model.ClientIdentity{
		PassportSeriesNumber: r.PassportSeriesNumber,
		PassportIssuedBy:     r.PassportIssuedBy,
		PassportIssueDate:    r.PassportIssueDate,
		PassportDepCode:      r.PassportDepCode,
		PassportAddress:      r.PassportAddress,
	}
}

type createContractRequest struct {
	Number            string          `json:"contract_number" binding:"required"`
	ContractDate      string          `json:"contract_date"`
	Type              string          `json:"contract_type"`
	ClientName        string          `json:"client_name" binding:"required"`
	Location          string          `json:"location"`
	Identity          identityRequest `json:"identity"`
	EstimatedDepth    *float64        `json:"estimated_depth"`
	PricePerMeterSoil *float64        `json:"price_per_meter_soil"`
	PricePerMeterRock *float64        `json:"price_per_meter_rock"`
	MinPrice          *float64        `json:"min_price"`
}

type updateContractRequest struct {
	Number            *string          `json:"contract_number"`
	ContractDate      *string          `json:"contract_date"`
	ClientName        *string          `json:"client_name"`
	Location          *string          `json:"location"`
	Identity          *identityRequest `json:"identity"`
	EstimatedDepth    *float64         `json:"estimated_depth"`
	PricePerMeterSoil *float64         `json:"price_per_meter_soil"`
	PricePerMeterRock *float64         `json:"price_per_meter_rock"`
	ActualDepthSoil   *float64         `json:"actual_depth_soil"`
	ActualDepthRock   *float64         `json:"actual_depth_rock"`
	PipeSteelUsed     *float64         `json:"pipe_steel_used"`
	PipePlasticUsed   *float64         `json:"pipe_plastic_used"`
	MinPrice          *float64         `json:"min_price"`
}

type revenueRequest struct {
	MetersSoil           *float64 `json:"meters_soil"`
	MetersRock           *float64 `json:"meters_rock"`
	SteelPipeMeters      *float64 `json:"steel_pipe_meters"`
	SteelPricePerMeter   *float64 `json:"steel_price_per_meter"`
	PlasticPipeMeters    *float64 `json:"plastic_pipe_meters"`
	PlasticPricePerMeter *float64 `json:"plastic_price_per_meter"`
	MinPrice             *float64 `json:"min_price"`
	SteelSKU             string   `json:"steel_sku"`
	PlasticSKU           string   `json:"plastic_sku"`
}

func (r revenueRequest) toService() service.RevenueRequest {
	return service.RevenueRequest{
		MetersSoil:           r.MetersSoil,
		MetersRock:           r.MetersRock,
		SteelPipeMeters:      r.SteelPipeMeters,
		SteelPricePerMeter:   r.SteelPricePerMeter,
		PlasticPipeMeters:    r.PlasticPipeMeters,
		PlasticPricePerMeter: r.PlasticPricePerMeter,
		MinPrice:             r.MinPrice,
		SteelSKU:             strings.TrimSpace(r.SteelSKU),
		PlasticSKU:           strings.TrimSpace(r.PlasticSKU),
	}
}

type batchWriteOffRequest struct {
	NoHistory bool `json:"no_history"`
}

func (h *Handler) listContracts(c *gin.Context) {
	page, limit, err := pageParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	q := service.ContractQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   page,
		Limit:  limit,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.ContractStatus(strings.ToUpper(raw))
		q.Status = &status
	}
	result, err := h.contracts.List(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createContract(c *gin.Context) {
	var req createContractRequest
	if !bindJSON(c, &req) {
		return
	}
	var date time.Time
	if strings.TrimSpace(req.ContractDate) != "" {
		parsed, err := parseDate(req.ContractDate)
		if err != nil {
			badRequest(c, "invalid contract_date")
			return
		}
		date = parsed
	}
	contract, err := h.contracts.Create(c.Request.Context(), service.ContractInput{
		Number:            req.Number,
		Date:              date,
		Type:              model.ContractType(strings.ToUpper(strings.TrimSpace(req.Type))),
		ClientName:        req.ClientName,
		Location:          req.Location,
		Identity:          req.Identity.toModel(),
		EstimatedDepth:    req.EstimatedDepth,
		PricePerMeterSoil: req.PricePerMeterSoil,
		PricePerMeterRock: req.PricePerMeterRock,
		MinPrice:          req.MinPrice,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) updateContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateContractRequest
	if !bindJSON(c, &req) {
		return
	}
	update := service.ContractUpdate{
		Number:            req.Number,
		ClientName:        req.ClientName,
		Location:          req.Location,
		EstimatedDepth:    req.EstimatedDepth,
		PricePerMeterSoil: req.PricePerMeterSoil,
		PricePerMeterRock: req.PricePerMeterRock,
		ActualDepthSoil:   req.ActualDepthSoil,
		ActualDepthRock:   req.ActualDepthRock,
		PipeSteelUsed:     req.PipeSteelUsed,
		PipePlasticUsed:   req.PipePlasticUsed,
		MinPrice:          req.MinPrice,
	}
	if req.ContractDate != nil {
		parsed, err := parseDate(*req.ContractDate)
		if err != nil {
			badRequest(c, "invalid contract_date")
			return
		}
		update.Date = &parsed
	}
	if req.Identity != nil {
		identity := req.Identity.toModel()
		update.Identity = &identity
	}
	contract, err := h.contracts.Update(c.Request.Context(), id, update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) deleteContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) contractTransition(fn func(ctx context.Context, id uuid.UUID) (*model.Contract, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		contract, err := fn(c.Request.Context(), id)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, contract)
	}
}

func (h *Handler) writeOffPipes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.contracts.WriteOffPipes(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeOffAllPipes(c *gin.Context) {
	var req batchWriteOffRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	result, err := h.contracts.WriteOffAllPipes(c.Request.Context(), req.NoHistory)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) bindRevenue(c *gin.Context) (uuid.UUID, service.RevenueRequest, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return uuid.Nil, service.RevenueRequest{}, false
	}
	var req revenueRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return uuid.Nil, service.RevenueRequest{}, false
	}
	return id, req.toService(), true
}

func (h *Handler) calculateRevenue(c *gin.Context) {
	id, req, ok := h.bindRevenue(c)
	if !ok {
		return
	}
	breakdown, err := h.contracts.CalculateRevenue(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (h *Handler) exportQuote(c *gin.Context) {
	id, req, ok := h.bindRevenue(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	breakdown, err := h.contracts.CalculateRevenue(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.pdf.Quote(contract, breakdown)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, contentTypePDF, "quote_"+contract.Number+".pdf", content)
}
