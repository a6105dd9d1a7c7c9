package payment

import (
	"errors"
	"net/http"
	"strconv"

	"schoolpay/internal/domain"
	"schoolpay/internal/gateway"
	"schoolpay/internal/pkg/response"
	"schoolpay/internal/pkg/validator"
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

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/create-payment", h.CreatePayment)
	rg.GET("/payments/:custom_order_id/check-status", h.CheckStatus)
	rg.GET("/transaction-status/:custom_order_id", h.TransactionStatus)
	rg.GET("/transactions/school/:school_id", h.SchoolTransactions)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/transactions", h.AllTransactions)
}

// CreatePayment godoc
// @Summary      Create a payment request
// @Description  Persists the order and opens a collect request with the payment vendor
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreatePaymentRequest true "Payment creation payload"
// @Success      201 {object} CreatePaymentResponse
// @Router       /payments/create-payment [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if details := validator.Validate(req); details != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment request", details)
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.CreatePayment(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// CheckStatus godoc
// @Summary      Poll the vendor for a payment's current status
// @Description  Fetches vendor status and merges it into the order's ledger
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        custom_order_id path string true "Custom order id"
// @Success      200 {object} TransactionStatusResponse
// @Router       /payments/{custom_order_id}/check-status [get]
func (h *Handler) CheckStatus(c *gin.Context) {
	res, err := h.service.CheckStatus(c.Request.Context(), callerFrom(c), c.Param("custom_order_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// TransactionStatus godoc
// @Summary      Latest known status of an order
// @Description  Reads the ledger without contacting the vendor; pass history=true for the full audit trail
// @Tags         Transactions
// @Security     BearerAuth
// @Produce      json
// @Param        custom_order_id path string true "Custom order id"
// @Success      200 {object} TransactionStatusResponse
// @Router       /transaction-status/{custom_order_id} [get]
func (h *Handler) TransactionStatus(c *gin.Context) {
	includeHistory := c.Query("history") == "true"
	res, err := h.service.GetTransactionStatus(c.Request.Context(), callerFrom(c), c.Param("custom_order_id"), includeHistory)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// AllTransactions godoc
// @Summary      List all transactions (admin)
// @Tags         Transactions
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /transactions [get]
func (h *Handler) AllTransactions(c *gin.Context) {
	rows, total, err := h.service.ListTransactions(c.Request.Context(), callerFrom(c), filterFrom(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transactions": rows, "total": total})
}

// SchoolTransactions godoc
// @Summary      List a school's transactions
// @Description  Non-admin callers may only query their own school
// @Tags         Transactions
// @Security     BearerAuth
// @Produce      json
// @Param        school_id path string true "School id"
// @Success      200 {object} map[string]interface{}
// @Router       /transactions/school/{school_id} [get]
func (h *Handler) SchoolTransactions(c *gin.Context) {
	rows, total, err := h.service.ListSchoolTransactions(c.Request.Context(), callerFrom(c), c.Param("school_id"), filterFrom(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transactions": rows, "total": total})
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	var verr *gateway.VendorError
	var nerr *gateway.NetworkError
	switch {
	case errors.Is(err, repository.ErrDuplicateOrder):
		response.Error(c, http.StatusConflict, "DUPLICATE_ORDER", "An order with this custom order id already exists")
	case errors.Is(err, repository.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You may not access this school's orders")
	case errors.Is(err, ErrSchoolRequired):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "school_id is required")
	case errors.Is(err, ErrNoCollectRef):
		response.Error(c, http.StatusConflict, "NO_COLLECT_REQUEST", "Order has no vendor collect request to poll")
	case errors.As(err, &verr):
		response.Error(c, http.StatusBadGateway, "VENDOR_ERROR", verr.Message)
	case errors.As(err, &nerr):
		response.Error(c, http.StatusBadGateway, "VENDOR_UNREACHABLE", "Payment vendor is unreachable")
	default:
		h.loggerf("level=error msg=payment request failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func callerFrom(c *gin.Context) domain.Caller {
	return domain.Caller{
		UserID:   c.GetInt64("user_id"),
		Role:     domain.Role(c.GetString("role")),
		SchoolID: c.GetString("school_id"),
	}
}

func filterFrom(c *gin.Context) repository.TransactionFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return repository.TransactionFilter{
		Status: domain.PaymentStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
}
