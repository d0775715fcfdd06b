package handler

import (
	"errors"
	"net/http"

	"sbt-engine/internal/apierrors"
	"sbt-engine/internal/issuance/processor"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.IssuanceProcessor
	logger    *observability.Logger
}

func New(processor processor.IssuanceProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// IssueRequest represents the HTTP request for recording a qualifying event.
type IssueRequest struct {
	TemplateID       uuid.UUID `json:"templateId" binding:"required"`
	RecipientAddress string    `json:"recipientAddress" binding:"required"`
	SourcePaymentID  *string   `json:"sourcePaymentId,omitempty"`
}

// HandleIssue records a qualifying event and applies the evaluator decision.
func (h *Handler) HandleIssue(c *gin.Context) {
	ctx := c.Request.Context()

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "failed to bind issue request", err)
		apierrors.BadRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	token, err := h.processor.EvaluateAndIssue(ctx, processor.IssueParams{
		TemplateID:       req.TemplateID,
		RecipientAddress: req.RecipientAddress,
		SourcePaymentID:  req.SourcePaymentID,
		Source:           store.PaymentSourceManual,
	})
	if err != nil {
		h.respondIssuanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *Handler) respondIssuanceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var rejection *processor.RejectionError
	switch {
	case errors.As(err, &rejection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":     "NOT_ELIGIBLE",
			"reason":   rejection.Reason,
			"progress": rejection.Progress,
		})
	case errors.Is(err, processor.ErrTemplateNotActive):
		apierrors.Conflict(c, "TEMPLATE_NOT_ACTIVE", "template is not active")
	case errors.Is(err, store.ErrNotFound):
		apierrors.NotFound(c, "template not found")
	case errors.Is(err, store.ErrValidation):
		apierrors.BadRequest(c, "INVALID_REQUEST", err.Error())
	default:
		h.logger.Error(ctx, "issuance failed", err)
		apierrors.InternalError(c, err)
	}
}

// HandleListTokens returns issued tokens, optionally filtered by recipient.
func (h *Handler) HandleListTokens(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		tokens []store.IssuedToken
		err    error
	)
	if recipient := c.Query("recipient"); recipient != "" {
		tokens, err = h.processor.ListTokensByRecipient(ctx, recipient)
	} else {
		tokens, err = h.processor.ListTokens(ctx)
	}
	if err != nil {
		h.logger.Error(ctx, "failed to list issued tokens", err)
		apierrors.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// HandleGetProgress reports issuance progress for a (recipient, template) pair.
func (h *Handler) HandleGetProgress(c *gin.Context) {
	ctx := c.Request.Context()

	templateID, err := uuid.Parse(c.Param("template_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_TEMPLATE_ID", "invalid template id")
		return
	}
	recipient := c.Query("recipient")
	if recipient == "" {
		apierrors.BadRequest(c, "MISSING_RECIPIENT", "recipient query parameter is required")
		return
	}

	progress, err := h.processor.GetIssuanceProgress(ctx, recipient, templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(c, "template not found")
			return
		}
		h.logger.Error(ctx, "failed to compute issuance progress", err)
		apierrors.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// HandleRetryMint re-enqueues the mint pipeline for a failed or pending token.
func (h *Handler) HandleRetryMint(c *gin.Context) {
	ctx := c.Request.Context()

	tokenID, err := uuid.Parse(c.Param("token_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_TOKEN_ID", "invalid token id")
		return
	}

	token, err := h.processor.RetryMint(ctx, tokenID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			apierrors.NotFound(c, "token not found")
		case errors.Is(err, store.ErrConflict):
			apierrors.Conflict(c, "MINT_ALREADY_SUCCEEDED", "mint already succeeded")
		default:
			h.logger.Error(ctx, "failed to retry mint", err)
			apierrors.InternalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, token)
}
