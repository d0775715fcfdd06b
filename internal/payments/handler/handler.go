package handler

import (
	"io"
	"net/http"

	"sbt-engine/internal/observability"
	"sbt-engine/internal/payments/processor"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79/webhook"
)

type Handler struct {
	processor processor.PaymentProcessor
	logger    *observability.Logger
}

func New(processor processor.PaymentProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

func (h *Handler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error(ctx, "failed to read request body", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	signatureHeader := c.GetHeader("Stripe-Signature")
	if signatureHeader == "" {
		h.logger.Error(ctx, "missing Stripe-Signature header", nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, signatureHeader, h.processor.WebhookSecret)
	if err != nil {
		h.logger.Error(ctx, "failed to construct event", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.processor.HandleWebhook(ctx, event); err != nil {
		h.logger.Error(ctx, "failed to handle webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success"})
}
