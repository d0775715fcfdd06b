package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
)

const (
	snapshotVersion = 1
	snapshotAppName = "sbt-engine"
)

// TransferStore is the slice of the ledger the export/import subsystem needs.
type TransferStore interface {
	ListTemplates(ctx context.Context) ([]store.Template, error)
	ListIssuedTokens(ctx context.Context) ([]store.IssuedToken, error)
	ListImages(ctx context.Context) ([]store.ImageBlob, error)
	PutTemplate(ctx context.Context, t store.Template) (store.Template, error)
	UpsertIssuedToken(ctx context.Context, t store.IssuedToken) (store.IssuedToken, error)
	PutImage(ctx context.Context, b store.ImageBlob) (store.ImageBlob, error)
}

// NetworkInfo pins a snapshot to the chain it was produced against.
type NetworkInfo struct {
	ChainID         int64  `json:"chainId"`
	ContractAddress string `json:"contractAddress"`
}

// Snapshot is the portable ledger document. The layout is additive: readers
// must tolerate unknown keys so older engines can import newer snapshots.
type Snapshot struct {
	Templates   []store.Template    `json:"templates"`
	SBTs        []store.IssuedToken `json:"sbts"`
	Images      []store.ImageBlob   `json:"images"`
	NetworkInfo NetworkInfo         `json:"networkInfo"`
	Metadata    map[string]string   `json:"metadata"`
	ExportedAt  time.Time           `json:"exportedAt"`
	Version     int                 `json:"version"`
	AppName     string              `json:"appName"`
}

// PartialImportError reports an import that failed after some entities were
// already applied. The ledger holds everything imported before the failure.
type PartialImportError struct {
	Applied int
	Err     error
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("import failed after %d entities were applied: %v", e.Applied, e.Err)
}

func (e *PartialImportError) Unwrap() error {
	return e.Err
}

type TransferProcessor struct {
	store   TransferStore
	network NetworkInfo
	logger  *observability.Logger
}

func New(transferStore TransferStore, network NetworkInfo, logger *observability.Logger) TransferProcessor {
	return TransferProcessor{
		store:   transferStore,
		network: network,
		logger:  logger,
	}
}

// ExportSnapshot reads the whole ledger into a portable document. The read is
// not transactional; concurrent issuance may land between entity scans.
func (p *TransferProcessor) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	templates, err := p.store.ListTemplates(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to export templates: %w", err)
	}
	tokens, err := p.store.ListIssuedTokens(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to export issued tokens: %w", err)
	}
	images, err := p.store.ListImages(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to export images: %w", err)
	}

	if templates == nil {
		templates = []store.Template{}
	}
	if tokens == nil {
		tokens = []store.IssuedToken{}
	}
	if images == nil {
		images = []store.ImageBlob{}
	}

	return Snapshot{
		Templates:   templates,
		SBTs:        tokens,
		Images:      images,
		NetworkInfo: p.network,
		Metadata:    map[string]string{},
		ExportedAt:  time.Now().UTC(),
		Version:     snapshotVersion,
		AppName:     snapshotAppName,
	}, nil
}

// ImportSnapshot merges a snapshot document into the ledger. The document is
// validated in full before anything is written; once writes begin, entities
// merge last-write-wins by id and a mid-way failure surfaces as a
// PartialImportError rather than rolling back.
func (p *TransferProcessor) ImportSnapshot(ctx context.Context, raw []byte) (Snapshot, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot is not a JSON object: %v", store.ErrValidation, err)
	}
	for _, required := range []string{"templates", "sbts", "images"} {
		if _, ok := keys[required]; !ok {
			return Snapshot{}, fmt.Errorf("%w: snapshot is missing %q", store.ErrValidation, required)
		}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: malformed snapshot: %v", store.ErrValidation, err)
	}
	for i, tpl := range snapshot.Templates {
		if tpl.ID == uuid.Nil {
			return Snapshot{}, fmt.Errorf("%w: template %d has no id", store.ErrValidation, i)
		}
		if !tpl.IssuePattern.Valid() {
			return Snapshot{}, fmt.Errorf("%w: template %s has unknown pattern %q", store.ErrValidation, tpl.ID, tpl.IssuePattern)
		}
	}
	for i, token := range snapshot.SBTs {
		if token.ID == uuid.Nil {
			return Snapshot{}, fmt.Errorf("%w: sbt %d has no id", store.ErrValidation, i)
		}
	}
	for i, image := range snapshot.Images {
		if image.ID == uuid.Nil {
			return Snapshot{}, fmt.Errorf("%w: image %d has no id", store.ErrValidation, i)
		}
	}

	applied := 0
	for _, image := range snapshot.Images {
		if _, err := p.store.PutImage(ctx, image); err != nil {
			return Snapshot{}, &PartialImportError{Applied: applied, Err: fmt.Errorf("failed to import image %s: %w", image.ID, err)}
		}
		applied++
	}
	for _, tpl := range snapshot.Templates {
		if _, err := p.store.PutTemplate(ctx, tpl); err != nil {
			return Snapshot{}, &PartialImportError{Applied: applied, Err: fmt.Errorf("failed to import template %s: %w", tpl.ID, err)}
		}
		applied++
	}
	for _, token := range snapshot.SBTs {
		if _, err := p.store.UpsertIssuedToken(ctx, token); err != nil {
			return Snapshot{}, &PartialImportError{Applied: applied, Err: fmt.Errorf("failed to import sbt %s: %w", token.ID, err)}
		}
		applied++
	}

	p.logger.Info(ctx, fmt.Sprintf("imported snapshot: %d templates, %d sbts, %d images",
		len(snapshot.Templates), len(snapshot.SBTs), len(snapshot.Images)))
	return snapshot, nil
}
