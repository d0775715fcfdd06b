package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sbt-engine/internal/observability"
)

// Mirror namespace kinds. Keys are flat "<kind>:<id>" strings so the whole
// namespace can be scanned without joins even when the primary tables are
// unreadable.
const (
	mirrorKindTemplate = "template"
	mirrorKindToken    = "token"
	mirrorKindImage    = "image"
	mirrorKindPayment  = "payment"
)

const sqlMirrorPut = `
INSERT INTO mirror (mkey, doc, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (mkey) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
`

// mirrorPut writes the JSON rendering of an entity into the mirror namespace.
// Called only after the primary write succeeded. A mirror write failure is
// logged and swallowed: it degrades recovery, not the current operation.
func (s *Store) mirrorPut(ctx context.Context, kind, id string, v interface{}) {
	doc, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnWithError(ctx, "failed to encode mirror document", err)
		return
	}
	key := fmt.Sprintf("%s:%s", kind, id)
	if _, err := s.db.ExecContext(ctx, sqlMirrorPut, key, string(doc), time.Now().UTC()); err != nil {
		ctx = observability.WithFields(ctx, observability.Field{Key: "mirror_key", Value: key})
		s.logger.WarnWithError(ctx, "failed to write mirror document", err)
	}
}

const sqlMirrorDelete = `DELETE FROM mirror WHERE mkey = $1`

func (s *Store) mirrorDelete(ctx context.Context, kind, id string) {
	key := fmt.Sprintf("%s:%s", kind, id)
	if _, err := s.db.ExecContext(ctx, sqlMirrorDelete, key); err != nil {
		s.logger.WarnWithError(ctx, "failed to delete mirror document", err)
	}
}

const sqlMirrorScan = `SELECT doc FROM mirror WHERE mkey LIKE $1`

// mirrorScan returns the raw documents of one mirror kind. Used when a
// primary read failed; marks the store degraded and logs a recovery warning.
// The primary is never repaired automatically.
func (s *Store) mirrorScan(ctx context.Context, kind string, cause error) ([][]byte, error) {
	var docs []string
	err := s.db.SelectContext(ctx, &docs, sqlMirrorScan, kind+":%")
	if err != nil {
		return nil, fmt.Errorf("primary read failed (%v) and mirror read failed: %w", cause, err)
	}

	s.degraded.Store(true)
	ctx = observability.WithFields(ctx, observability.Field{Key: "mirror_kind", Value: kind})
	s.logger.WarnWithError(ctx, "primary read failed, serving from mirror namespace", cause)

	out := make([][]byte, len(docs))
	for i, d := range docs {
		out[i] = []byte(d)
	}
	return out, nil
}

const sqlMirrorGet = `SELECT doc FROM mirror WHERE mkey = $1`

// mirrorGet returns one raw document, or ErrNotFound if the mirror has no
// entry either.
func (s *Store) mirrorGet(ctx context.Context, kind, id string, cause error) ([]byte, error) {
	var doc string
	key := fmt.Sprintf("%s:%s", kind, id)
	err := s.db.GetContext(ctx, &doc, sqlMirrorGet, key)
	if err != nil {
		return nil, fmt.Errorf("primary read failed (%v) and mirror read failed: %w", cause, err)
	}

	s.degraded.Store(true)
	ctx = observability.WithFields(ctx, observability.Field{Key: "mirror_key", Value: key})
	s.logger.WarnWithError(ctx, "primary read failed, serving from mirror namespace", cause)

	return []byte(doc), nil
}
