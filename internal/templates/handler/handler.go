package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"sbt-engine/internal/apierrors"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"
	"sbt-engine/internal/templates/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.TemplateProcessor
	logger    *observability.Logger
}

func New(processor processor.TemplateProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// CreateTemplateRequest represents the HTTP request for creating a template.
type CreateTemplateRequest struct {
	ShopID            string     `json:"shopId" binding:"required,max=255"`
	Name              string     `json:"name" binding:"required,max=255"`
	IssuePattern      string     `json:"issuePattern" binding:"required"`
	MaxStamps         int        `json:"maxStamps" binding:"required"`
	Threshold         int        `json:"threshold,omitempty"`
	TimePeriodDays    *int       `json:"timePeriodDays,omitempty"`
	PeriodStart       *string    `json:"periodStart,omitempty"`
	PeriodEnd         *string    `json:"periodEnd,omitempty"`
	RewardDescription string     `json:"rewardDescription,omitempty"`
	ImageID           *uuid.UUID `json:"imageId,omitempty"`
}

// UpdateTemplateRequest represents the HTTP request for updating a template.
type UpdateTemplateRequest struct {
	Name              *string    `json:"name,omitempty"`
	RewardDescription *string    `json:"rewardDescription,omitempty"`
	ImageID           *uuid.UUID `json:"imageId,omitempty"`
	Status            *string    `json:"status,omitempty"`
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// HandleCreateTemplate creates a new issuance template.
func (h *Handler) HandleCreateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "failed to bind create template request", err)
		apierrors.BadRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	periodStart, err := parseOptionalTime(req.PeriodStart)
	if err != nil {
		apierrors.BadRequest(c, "INVALID_PERIOD_START", "invalid periodStart, expected RFC3339")
		return
	}
	periodEnd, err := parseOptionalTime(req.PeriodEnd)
	if err != nil {
		apierrors.BadRequest(c, "INVALID_PERIOD_END", "invalid periodEnd, expected RFC3339")
		return
	}

	tpl, err := h.processor.CreateTemplate(ctx, processor.CreateParams{
		ShopID:            req.ShopID,
		Name:              req.Name,
		IssuePattern:      store.IssuePattern(req.IssuePattern),
		MaxStamps:         req.MaxStamps,
		Threshold:         req.Threshold,
		TimePeriodDays:    req.TimePeriodDays,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		RewardDescription: req.RewardDescription,
		ImageID:           req.ImageID,
	})
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) respondTemplateError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, store.ErrValidation):
		apierrors.BadRequest(c, "INVALID_TEMPLATE", err.Error())
	case errors.Is(err, store.ErrConflict):
		apierrors.Conflict(c, "TEMPLATE_CONFLICT", err.Error())
	case errors.Is(err, store.ErrNotFound):
		apierrors.NotFound(c, "template not found")
	default:
		h.logger.Error(ctx, "template operation failed", err)
		apierrors.InternalError(c, err)
	}
}

// HandleGetTemplate returns one template by id.
func (h *Handler) HandleGetTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("template_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_TEMPLATE_ID", "invalid template id")
		return
	}

	tpl, err := h.processor.GetTemplate(ctx, id)
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// HandleListTemplates returns the full template catalog.
func (h *Handler) HandleListTemplates(c *gin.Context) {
	ctx := c.Request.Context()

	templates, err := h.processor.ListTemplates(ctx)
	if err != nil {
		h.logger.Error(ctx, "failed to list templates", err)
		apierrors.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// HandleUpdateTemplate applies a partial update to a template.
func (h *Handler) HandleUpdateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("template_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_TEMPLATE_ID", "invalid template id")
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "failed to bind update template request", err)
		apierrors.BadRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	tpl, err := h.processor.UpdateTemplate(ctx, id, processor.UpdateParams{
		Name:              req.Name,
		RewardDescription: req.RewardDescription,
		ImageID:           req.ImageID,
		Status:            req.Status,
	})
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// HandleDeleteTemplate removes a template unless redeemed tokens reference it.
func (h *Handler) HandleDeleteTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("template_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_TEMPLATE_ID", "invalid template id")
		return
	}

	if err := h.processor.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			apierrors.Conflict(c, "TEMPLATE_IN_USE", "redeemed tokens still reference this template")
			return
		}
		h.respondTemplateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleUploadImage accepts a multipart image upload for reward art.
func (h *Handler) HandleUploadImage(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("image")
	if err != nil {
		apierrors.BadRequest(c, "MISSING_IMAGE", "multipart field 'image' is required")
		return
	}

	var templateID *uuid.UUID
	if raw := c.PostForm("templateId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apierrors.BadRequest(c, "INVALID_TEMPLATE_ID", "invalid template id")
			return
		}
		templateID = &id
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error(ctx, "failed to open uploaded image", err)
		apierrors.InternalError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error(ctx, "failed to read uploaded image", err)
		apierrors.InternalError(c, err)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	blob, err := h.processor.StoreImage(ctx, templateID, content, mimeType)
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        blob.ID,
		"mimeType":  blob.MimeType,
		"sizeBytes": blob.SizeBytes,
	})
}

// HandleGetImage serves the raw image bytes.
func (h *Handler) HandleGetImage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_IMAGE_ID", "invalid image id")
		return
	}

	blob, err := h.processor.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(c, "image not found")
			return
		}
		h.logger.Error(ctx, "failed to load image", err)
		apierrors.InternalError(c, err)
		return
	}
	c.Data(http.StatusOK, blob.MimeType, blob.Content)
}
