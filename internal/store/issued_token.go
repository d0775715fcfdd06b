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

const sqlUpsertIssuedToken = `
INSERT INTO issued_tokens (id, template_id, recipient_address, current_stamps, max_stamps, status, mint_status, fail_reason, mint_error, needs_metadata_repair, tx_hash, token_id, chain_id, source_payment_id, issued_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
	current_stamps = excluded.current_stamps,
	max_stamps = excluded.max_stamps,
	status = excluded.status,
	mint_status = excluded.mint_status,
	fail_reason = excluded.fail_reason,
	mint_error = excluded.mint_error,
	needs_metadata_repair = excluded.needs_metadata_repair,
	tx_hash = excluded.tx_hash,
	token_id = excluded.token_id,
	chain_id = excluded.chain_id,
	source_payment_id = excluded.source_payment_id,
	updated_at = excluded.updated_at
`

// UpsertIssuedToken writes a token row keyed by id. The minting pipeline
// calls this repeatedly to advance state; the upsert is idempotent.
// A terminal mint status never reverts to pending through this path.
func (s *Store) UpsertIssuedToken(ctx context.Context, t IssuedToken) (IssuedToken, error) {
	if t.ID == uuid.Nil {
		return IssuedToken{}, fmt.Errorf("%w: token id is required", ErrValidation)
	}
	if t.RecipientAddress == "" {
		return IssuedToken{}, fmt.Errorf("%w: recipient address is required", ErrValidation)
	}

	existing, err := s.GetIssuedToken(ctx, t.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return IssuedToken{}, err
	}
	if err == nil && existing.MintStatus != MintStatusPending && t.MintStatus == MintStatusPending {
		return IssuedToken{}, fmt.Errorf("%w: mint status %s cannot revert to pending", ErrConflict, existing.MintStatus)
	}

	if t.IssuedAt.IsZero() {
		t.IssuedAt = time.Now().UTC()
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, sqlUpsertIssuedToken,
		t.ID,
		t.TemplateID,
		t.RecipientAddress,
		t.CurrentStamps,
		t.MaxStamps,
		t.Status,
		t.MintStatus,
		t.FailReason,
		t.MintError,
		t.NeedsMetadataRepair,
		t.TxHash,
		t.TokenID,
		t.ChainID,
		t.SourcePaymentID,
		t.IssuedAt,
		t.UpdatedAt)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to upsert issued token: %w", err)
	}

	s.mirrorPut(ctx, mirrorKindToken, t.ID.String(), t)
	return t, nil
}

const sqlResetMintForRetry = `
UPDATE issued_tokens
SET mint_status = 'pending',
    fail_reason = NULL,
    mint_error = NULL,
    updated_at = $2
WHERE id = $1 AND mint_status = 'failed'
`

// ResetMintForRetry moves a failed mint back to pending for a manual retry.
// This is the only path out of a terminal mint status, and it requires an
// explicit merchant action; the pipeline itself never reverses a transition.
func (s *Store) ResetMintForRetry(ctx context.Context, id uuid.UUID) (IssuedToken, error) {
	res, err := s.db.ExecContext(ctx, sqlResetMintForRetry, id, time.Now().UTC())
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to reset mint for retry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the row is missing or it is not in a failed state.
		if _, gerr := s.GetIssuedToken(ctx, id); gerr != nil {
			return IssuedToken{}, gerr
		}
		return IssuedToken{}, fmt.Errorf("%w: mint is not in failed state", ErrConflict)
	}

	t, err := s.GetIssuedToken(ctx, id)
	if err != nil {
		return IssuedToken{}, err
	}
	s.mirrorPut(ctx, mirrorKindToken, t.ID.String(), t)
	return t, nil
}

const sqlGetIssuedToken = `
SELECT id, template_id, recipient_address, current_stamps, max_stamps, status, mint_status, fail_reason, mint_error, needs_metadata_repair, tx_hash, token_id, chain_id, source_payment_id, issued_at, updated_at
FROM issued_tokens
WHERE id = $1
`

// GetIssuedToken retrieves a token row by ID, falling back to the mirror on a
// primary read failure.
func (s *Store) GetIssuedToken(ctx context.Context, id uuid.UUID) (IssuedToken, error) {
	var t IssuedToken
	err := s.db.GetContext(ctx, &t, sqlGetIssuedToken, id)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return IssuedToken{}, ErrNotFound
	}

	doc, merr := s.mirrorGet(ctx, mirrorKindToken, id.String(), err)
	if merr != nil {
		return IssuedToken{}, merr
	}
	if err := json.Unmarshal(doc, &t); err != nil {
		return IssuedToken{}, fmt.Errorf("failed to decode mirrored token: %w", err)
	}
	return t, nil
}

const sqlListIssuedTokens = `
SELECT id, template_id, recipient_address, current_stamps, max_stamps, status, mint_status, fail_reason, mint_error, needs_metadata_repair, tx_hash, token_id, chain_id, source_payment_id, issued_at, updated_at
FROM issued_tokens
ORDER BY issued_at DESC
`

// ListIssuedTokens retrieves the full issued-token catalog, falling back to
// the mirror on a primary read failure.
func (s *Store) ListIssuedTokens(ctx context.Context) ([]IssuedToken, error) {
	var tokens []IssuedToken
	err := s.db.SelectContext(ctx, &tokens, sqlListIssuedTokens)
	if err == nil {
		return tokens, nil
	}

	docs, merr := s.mirrorScan(ctx, mirrorKindToken, err)
	if merr != nil {
		return nil, merr
	}
	tokens = make([]IssuedToken, 0, len(docs))
	for _, doc := range docs {
		var t IssuedToken
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("failed to decode mirrored token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

const sqlListIssuedTokensByRecipient = `
SELECT id, template_id, recipient_address, current_stamps, max_stamps, status, mint_status, fail_reason, mint_error, needs_metadata_repair, tx_hash, token_id, chain_id, source_payment_id, issued_at, updated_at
FROM issued_tokens
WHERE recipient_address = $1
ORDER BY issued_at DESC
`

// ListIssuedTokensByRecipient retrieves all token rows for one wallet.
func (s *Store) ListIssuedTokensByRecipient(ctx context.Context, address string) ([]IssuedToken, error) {
	var tokens []IssuedToken
	err := s.db.SelectContext(ctx, &tokens, sqlListIssuedTokensByRecipient, address)
	if err == nil {
		return tokens, nil
	}

	docs, merr := s.mirrorScan(ctx, mirrorKindToken, err)
	if merr != nil {
		return nil, merr
	}
	tokens = make([]IssuedToken, 0, len(docs))
	for _, doc := range docs {
		var t IssuedToken
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("failed to decode mirrored token: %w", err)
		}
		if t.RecipientAddress == address {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}
