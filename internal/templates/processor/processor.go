package processor

import (
	"context"
	"fmt"
	"time"

	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
)

// TemplateStore is the slice of the ledger the template processor needs.
type TemplateStore interface {
	PutTemplate(ctx context.Context, t store.Template) (store.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error)
	ListTemplates(ctx context.Context) ([]store.Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	PutImage(ctx context.Context, b store.ImageBlob) (store.ImageBlob, error)
	GetImage(ctx context.Context, id uuid.UUID) (store.ImageBlob, error)
	ListImages(ctx context.Context) ([]store.ImageBlob, error)
}

type TemplateProcessor struct {
	store  TemplateStore
	logger *observability.Logger
}

func New(templateStore TemplateStore, logger *observability.Logger) TemplateProcessor {
	return TemplateProcessor{
		store:  templateStore,
		logger: logger,
	}
}

// CreateParams carries a validated template definition.
type CreateParams struct {
	ShopID            string
	Name              string
	IssuePattern      store.IssuePattern
	MaxStamps         int
	Threshold         int
	TimePeriodDays    *int
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	RewardDescription string
	ImageID           *uuid.UUID
}

func validate(p CreateParams) error {
	if p.ShopID == "" {
		return fmt.Errorf("%w: shop id is required", store.ErrValidation)
	}
	if !p.IssuePattern.Valid() {
		return fmt.Errorf("%w: unknown issue pattern %q", store.ErrValidation, p.IssuePattern)
	}
	if p.MaxStamps <= 0 {
		return fmt.Errorf("%w: max stamps must be positive", store.ErrValidation)
	}

	switch p.IssuePattern {
	case store.PatternAfterCount:
		if p.Threshold <= 0 {
			return fmt.Errorf("%w: after-count templates need a positive threshold", store.ErrValidation)
		}
	case store.PatternTimePeriod:
		if p.TimePeriodDays == nil || *p.TimePeriodDays <= 0 {
			return fmt.Errorf("%w: time-period templates need positive timePeriodDays", store.ErrValidation)
		}
	case store.PatternPeriodRange:
		if p.PeriodStart == nil || p.PeriodEnd == nil {
			return fmt.Errorf("%w: period-range templates need periodStart and periodEnd", store.ErrValidation)
		}
		if p.PeriodEnd.Before(*p.PeriodStart) {
			return fmt.Errorf("%w: periodEnd must not precede periodStart", store.ErrValidation)
		}
	}
	return nil
}

// CreateTemplate validates and persists a new template.
func (p *TemplateProcessor) CreateTemplate(ctx context.Context, params CreateParams) (store.Template, error) {
	if err := validate(params); err != nil {
		return store.Template{}, err
	}

	tpl := store.Template{
		ID:                uuid.New(),
		ShopID:            params.ShopID,
		Name:              params.Name,
		IssuePattern:      params.IssuePattern,
		MaxStamps:         params.MaxStamps,
		Threshold:         params.Threshold,
		TimePeriodDays:    params.TimePeriodDays,
		PeriodStart:       params.PeriodStart,
		PeriodEnd:         params.PeriodEnd,
		RewardDescription: params.RewardDescription,
		ImageID:           params.ImageID,
		Status:            store.TemplateStatusActive,
		CreatedAt:         time.Now().UTC(),
	}
	return p.store.PutTemplate(ctx, tpl)
}

// UpdateParams holds the mutable template fields. Nil means unchanged.
type UpdateParams struct {
	Name              *string
	RewardDescription *string
	ImageID           *uuid.UUID
	Status            *string
}

// UpdateTemplate applies a partial update. The issuance rule itself is
// immutable once tokens can reference it; only presentation and status change.
func (p *TemplateProcessor) UpdateTemplate(ctx context.Context, id uuid.UUID, params UpdateParams) (store.Template, error) {
	tpl, err := p.store.GetTemplate(ctx, id)
	if err != nil {
		return store.Template{}, err
	}

	if params.Name != nil {
		tpl.Name = *params.Name
	}
	if params.RewardDescription != nil {
		tpl.RewardDescription = *params.RewardDescription
	}
	if params.ImageID != nil {
		tpl.ImageID = params.ImageID
	}
	if params.Status != nil {
		if *params.Status != store.TemplateStatusActive && *params.Status != store.TemplateStatusArchived {
			return store.Template{}, fmt.Errorf("%w: unknown template status %q", store.ErrValidation, *params.Status)
		}
		tpl.Status = *params.Status
	}
	return p.store.PutTemplate(ctx, tpl)
}

func (p *TemplateProcessor) GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error) {
	return p.store.GetTemplate(ctx, id)
}

func (p *TemplateProcessor) ListTemplates(ctx context.Context) ([]store.Template, error) {
	return p.store.ListTemplates(ctx)
}

// DeleteTemplate removes a template. The store refuses when redeemed tokens
// still reference it.
func (p *TemplateProcessor) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return p.store.DeleteTemplate(ctx, id)
}

const maxImageSizeBytes = 5 << 20

var allowedImageMimeTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// StoreImage validates and persists a reward image blob.
func (p *TemplateProcessor) StoreImage(ctx context.Context, templateID *uuid.UUID, content []byte, mimeType string) (store.ImageBlob, error) {
	if len(content) == 0 {
		return store.ImageBlob{}, fmt.Errorf("%w: image content is empty", store.ErrValidation)
	}
	if len(content) > maxImageSizeBytes {
		return store.ImageBlob{}, fmt.Errorf("%w: image exceeds %d bytes", store.ErrValidation, maxImageSizeBytes)
	}
	if !allowedImageMimeTypes[mimeType] {
		return store.ImageBlob{}, fmt.Errorf("%w: unsupported image type %q", store.ErrValidation, mimeType)
	}
	if templateID != nil {
		if _, err := p.store.GetTemplate(ctx, *templateID); err != nil {
			return store.ImageBlob{}, err
		}
	}

	blob := store.ImageBlob{
		ID:         uuid.New(),
		TemplateID: templateID,
		Content:    content,
		MimeType:   mimeType,
		CreatedAt:  time.Now().UTC(),
	}
	return p.store.PutImage(ctx, blob)
}

func (p *TemplateProcessor) GetImage(ctx context.Context, id uuid.UUID) (store.ImageBlob, error) {
	return p.store.GetImage(ctx, id)
}
