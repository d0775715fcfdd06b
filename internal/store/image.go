package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sqlPutImage = `
INSERT INTO images (id, template_id, content, mime_type, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	template_id = excluded.template_id,
	content = excluded.content,
	mime_type = excluded.mime_type,
	size_bytes = excluded.size_bytes
`

// PutImage upserts an image blob keyed by id.
func (s *Store) PutImage(ctx context.Context, b ImageBlob) (ImageBlob, error) {
	if len(b.Content) == 0 {
		return ImageBlob{}, fmt.Errorf("%w: image content is empty", ErrValidation)
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.MimeType == "" {
		b.MimeType = "application/octet-stream"
	}
	b.SizeBytes = int64(len(b.Content))
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, sqlPutImage,
		b.ID,
		b.TemplateID,
		b.Content,
		b.MimeType,
		b.SizeBytes,
		b.CreatedAt)
	if err != nil {
		return ImageBlob{}, fmt.Errorf("failed to put image: %w", err)
	}

	s.mirrorPut(ctx, mirrorKindImage, b.ID.String(), b)
	return b, nil
}

const sqlGetImage = `
SELECT id, template_id, content, mime_type, size_bytes, created_at
FROM images
WHERE id = $1
`

// GetImage retrieves an image by ID, falling back to the mirror on a primary
// read failure.
func (s *Store) GetImage(ctx context.Context, id uuid.UUID) (ImageBlob, error) {
	var b ImageBlob
	err := s.db.GetContext(ctx, &b, sqlGetImage, id)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ImageBlob{}, ErrNotFound
	}

	doc, merr := s.mirrorGet(ctx, mirrorKindImage, id.String(), err)
	if merr != nil {
		return ImageBlob{}, merr
	}
	if err := json.Unmarshal(doc, &b); err != nil {
		return ImageBlob{}, fmt.Errorf("failed to decode mirrored image: %w", err)
	}
	return b, nil
}

const sqlListImages = `
SELECT id, template_id, content, mime_type, size_bytes, created_at
FROM images
ORDER BY created_at DESC
`

// ListImages retrieves every stored image, falling back to the mirror on a
// primary read failure.
func (s *Store) ListImages(ctx context.Context) ([]ImageBlob, error) {
	var images []ImageBlob
	err := s.db.SelectContext(ctx, &images, sqlListImages)
	if err == nil {
		return images, nil
	}

	docs, merr := s.mirrorScan(ctx, mirrorKindImage, err)
	if merr != nil {
		return nil, merr
	}
	images = make([]ImageBlob, 0, len(docs))
	for _, doc := range docs {
		var b ImageBlob
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, fmt.Errorf("failed to decode mirrored image: %w", err)
		}
		images = append(images, b)
	}
	return images, nil
}
