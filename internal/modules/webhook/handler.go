package webhook

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"schoolpay/internal/domain"
	"schoolpay/internal/pkg/response"
	"schoolpay/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

// RegisterPublicRoutes mounts the vendor-facing ingestion endpoint. It is
// unauthenticated; the optional body signature is the only gate.
func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.POST("/webhook", h.Receive)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/webhooks", h.List)
	rg.POST("/webhooks/:id/retry", h.Retry)
}

// Receive godoc
// @Summary      Receive a payment status webhook
// @Description  Accepts vendor push notifications; every delivery is stored before processing
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} IngestResponse
// @Router       /webhook [post]
func (h *Handler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read request body")
		return
	}

	delivery, err := h.service.Ingest(c.Request.Context(), raw, c.Request.Header, c.ClientIP(), c.GetHeader("X-Webhook-Signature"))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, IngestResponse{EventID: delivery.EventID, Status: string(delivery.Status)})
	case errors.Is(err, ErrInvalidSignature):
		response.Error(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature verification failed")
	case errors.Is(err, ErrUnparseable):
		response.Error(c, http.StatusBadRequest, "UNPARSEABLE_PAYLOAD", "payload could not be parsed; delivery recorded as "+delivery.EventID)
	case errors.Is(err, ErrOrderUnresolved):
		// Acknowledged with HTTP 200 so the vendor stops resending, but the
		// body reports the failure; the stored delivery can be replayed
		// once the order exists.
		response.ErrorWithDetails(c, http.StatusOK, "ORDER_NOT_FOUND", "no matching order; delivery stored for replay", gin.H{
			"event_id": delivery.EventID,
			"status":   string(delivery.Status),
		})
	default:
		h.loggerf("level=error msg=webhook ingestion failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// List godoc
// @Summary      List webhook deliveries (admin)
// @Tags         Webhooks
// @Security     BearerAuth
// @Produce      json
// @Param        status query string false "Filter by delivery state"
// @Success      200 {object} map[string]interface{}
// @Router       /webhooks [get]
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, err := h.service.ListDeliveries(c.Request.Context(), domain.DeliveryState(c.Query("status")), limit, offset)
	if err != nil {
		h.loggerf("level=error msg=failed to list webhook deliveries err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deliveries": rows, "total": total})
}

// Retry godoc
// @Summary      Replay a failed webhook delivery (admin)
// @Tags         Webhooks
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Delivery id"
// @Success      200 {object} IngestResponse
// @Router       /webhooks/{id}/retry [post]
func (h *Handler) Retry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid delivery id")
		return
	}

	delivery, err := h.service.Retry(c.Request.Context(), id)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, IngestResponse{EventID: delivery.EventID, Status: string(delivery.Status)})
	case errors.Is(err, repository.ErrDeliveryNotFound):
		response.Error(c, http.StatusNotFound, "DELIVERY_NOT_FOUND", "Webhook delivery not found")
	case errors.Is(err, ErrAlreadyProcessed):
		response.Error(c, http.StatusConflict, "ALREADY_PROCESSED", "Delivery has already been processed")
	case errors.Is(err, ErrInvalidSignature):
		response.Error(c, http.StatusConflict, "INVALID_SIGNATURE", "Delivery failed signature verification and cannot be replayed")
	case errors.Is(err, ErrRetryExhausted):
		response.Error(c, http.StatusConflict, "RETRY_EXHAUSTED", "Delivery has exhausted its retries")
	case errors.Is(err, ErrOrderUnresolved), errors.Is(err, ErrUnparseable):
		response.Success(c, http.StatusOK, IngestResponse{
			EventID: delivery.EventID,
			Status:  string(delivery.Status),
			Message: delivery.Message,
		})
	default:
		h.loggerf("level=error msg=webhook retry failed delivery_id=%d err=%v", id, err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
