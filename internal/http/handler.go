package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/drillstock/internal/excel"
	"github.com/nurpe/drillstock/internal/http/middleware"
	"github.com/nurpe/drillstock/internal/pdf"
	"github.com/nurpe/drillstock/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type Services struct {
	Ledger    *service.Ledger
	Catalog   *service.Catalog
	Estimates *service.Estimates
	Contracts *service.Contracts
}

type Handler struct {
	ledger    *service.Ledger
	catalog   *service.Catalog
	estimates *service.Estimates
	contracts *service.Contracts
	excel     *excel.Generator
	pdf       *pdf.Generator
	log       zerolog.Logger
}

func NewHandler(svc Services, excelGen *excel.Generator, pdfGen *pdf.Generator, log zerolog.Logger) *Handler {
	return &Handler{
		ledger:    svc.Ledger,
		catalog:   svc.Catalog,
		estimates: svc.Estimates,
		contracts: svc.Contracts,
		excel:     excelGen,
		pdf:       pdfGen,
		log:       log.With().Str("component", "http").Logger(),
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/api")
	protected.Use(authMiddleware)

	h.registerActions(protected)
	h.registerCatalog(protected)
	h.registerEstimates(protected)
	h.registerContracts(protected)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var shortage *service.ShortageError
	switch {
	case errors.As(err, &shortage):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"product":   shortage.Product,
			"available": shortage.Available,
			"required":  shortage.Required,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientCustody),
		errors.Is(err, service.ErrInsufficientIssuance):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pdf.ErrUnsupportedText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error() + "; configure PDF_FONT_PATH with a UTF-8 font"})
	default:
		principal, _ := middleware.MustPrincipal(c)
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("user_id", principal.UserID).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

func queryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &t, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

func pageParams(c *gin.Context) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("invalid " + name)
	}
	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func sendFile(c *gin.Context, contentType, fileName string, content []byte) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, contentType, content)
}
