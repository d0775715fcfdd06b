package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sqlPutTemplate = `
INSERT INTO templates (id, shop_id, name, issue_pattern, max_stamps, threshold, time_period_days, period_start, period_end, reward_description, image_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	shop_id = excluded.shop_id,
	name = excluded.name,
	issue_pattern = excluded.issue_pattern,
	max_stamps = excluded.max_stamps,
	threshold = excluded.threshold,
	time_period_days = excluded.time_period_days,
	period_start = excluded.period_start,
	period_end = excluded.period_end,
	reward_description = excluded.reward_description,
	image_id = excluded.image_id,
	status = excluded.status
`

// PutTemplate upserts a template keyed by id. ShopID must be unique across
// the catalog; a collision with a different template returns ErrConflict.
func (s *Store) PutTemplate(ctx context.Context, t Template) (Template, error) {
	if t.ShopID == "" {
		return Template{}, fmt.Errorf("%w: shop id is required", ErrValidation)
	}
	if !t.IssuePattern.Valid() {
		return Template{}, fmt.Errorf("%w: unknown issue pattern %q", ErrValidation, t.IssuePattern)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TemplateStatusActive
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, sqlPutTemplate,
		t.ID,
		t.ShopID,
		t.Name,
		t.IssuePattern,
		t.MaxStamps,
		t.Threshold,
		t.TimePeriodDays,
		t.PeriodStart,
		t.PeriodEnd,
		t.RewardDescription,
		t.ImageID,
		t.Status,
		t.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: templates.shop_id") {
			return Template{}, fmt.Errorf("%w: shop id %q already in use", ErrConflict, t.ShopID)
		}
		return Template{}, fmt.Errorf("failed to put template: %w", err)
	}

	s.mirrorPut(ctx, mirrorKindTemplate, t.ID.String(), t)
	return t, nil
}

const sqlGetTemplate = `
SELECT id, shop_id, name, issue_pattern, max_stamps, threshold, time_period_days, period_start, period_end, reward_description, image_id, status, created_at
FROM templates
WHERE id = $1
`

// GetTemplate retrieves a template by ID, falling back to the mirror on a
// primary read failure.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (Template, error) {
	var t Template
	err := s.db.GetContext(ctx, &t, sqlGetTemplate, id)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}

	doc, merr := s.mirrorGet(ctx, mirrorKindTemplate, id.String(), err)
	if merr != nil {
		return Template{}, merr
	}
	if err := json.Unmarshal(doc, &t); err != nil {
		return Template{}, fmt.Errorf("failed to decode mirrored template: %w", err)
	}
	return t, nil
}

const sqlListTemplates = `
SELECT id, shop_id, name, issue_pattern, max_stamps, threshold, time_period_days, period_start, period_end, reward_description, image_id, status, created_at
FROM templates
ORDER BY created_at DESC
`

// ListTemplates retrieves the template catalog, falling back to the mirror on
// a primary read failure.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	var templates []Template
	err := s.db.SelectContext(ctx, &templates, sqlListTemplates)
	if err == nil {
		return templates, nil
	}

	docs, merr := s.mirrorScan(ctx, mirrorKindTemplate, err)
	if merr != nil {
		return nil, merr
	}
	templates = make([]Template, 0, len(docs))
	for _, doc := range docs {
		var t Template
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("failed to decode mirrored template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, nil
}

const sqlCountRedeemedByTemplate = `
SELECT COUNT(*) FROM issued_tokens WHERE template_id = $1 AND status = 'redeemed'
`

const sqlDeleteTemplate = `DELETE FROM templates WHERE id = $1`

// DeleteTemplate removes a template. Deletion is blocked with ErrConflict
// while any redeemed token references it, so redemption history keeps its
// provenance.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	var redeemed int
	if err := s.db.GetContext(ctx, &redeemed, sqlCountRedeemedByTemplate, id); err != nil {
		return fmt.Errorf("failed to check redeemed tokens: %w", err)
	}
	if redeemed > 0 {
		return fmt.Errorf("%w: template has %d redeemed token(s)", ErrConflict, redeemed)
	}

	res, err := s.db.ExecContext(ctx, sqlDeleteTemplate, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.mirrorDelete(ctx, mirrorKindTemplate, id.String())
	return nil
}
