package auth

import (
	"errors"
	"net/http"

	"schoolpay/internal/pkg/response"

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

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.Me)
}

// Register godoc
// @Summary      Register a new user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration payload"
// @Success      201 {object} UserResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	switch {
	case err == nil:
		response.Success(c, http.StatusCreated, user)
	case errors.Is(err, ErrEmailAlreadyExists):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered")
	case errors.Is(err, ErrSchoolIDRequired):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "school_id is required for school users")
	default:
		h.loggerf("level=error msg=registration failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// Login godoc
// @Summary      Authenticate and receive a JWT
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, res)
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	default:
		h.loggerf("level=error msg=login failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// Me godoc
// @Summary      Current user's profile
// @Tags         Auth
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} UserResponse
// @Router       /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context(), c.GetInt64("user_id"))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, user)
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	default:
		h.loggerf("level=error msg=profile lookup failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
