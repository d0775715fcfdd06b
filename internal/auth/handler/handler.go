package handler

import (
	"errors"
	"net/http"
	"strings"

	"sbt-engine/internal/apierrors"
	"sbt-engine/internal/auth/processor"
	"sbt-engine/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authProcessor processor.AuthProcessor
	logger        *observability.Logger
}

func New(authProcessor processor.AuthProcessor, logger *observability.Logger) Handler {
	return Handler{
		authProcessor: authProcessor,
		logger:        logger,
	}
}

// LoginRequest carries the dashboard password.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// HandleLogin exchanges the dashboard password for a bearer token.
func (h *Handler) HandleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.authProcessor.Login(ctx, req.Password)
	if err != nil {
		if errors.Is(err, processor.ErrWrongPassword) {
			apierrors.Unauthorized(c, "wrong password")
			return
		}
		h.logger.Error(ctx, "failed to issue session token", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// HandleJWTMiddleware guards dashboard routes with a bearer token check.
func (h *Handler) HandleJWTMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	tokenHeader := c.GetHeader("Authorization")

	if tokenHeader == "" || !strings.HasPrefix(tokenHeader, "Bearer ") {
		apierrors.Unauthorized(c, "Authorization token is missing or invalid")
		c.Abort()
		return
	}

	tokenString := strings.TrimPrefix(tokenHeader, "Bearer ")
	if _, err := h.authProcessor.ValidateJWTToken(ctx, tokenString); err != nil {
		apierrors.Unauthorized(c, err.Error())
		c.Abort()
		return
	}
	c.Next()
}
