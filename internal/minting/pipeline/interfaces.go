package pipeline

import (
	"context"
	"math/big"

	"sbt-engine/internal/clients/cas"
	"sbt-engine/internal/clients/chain"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
)

// TokenStore is the slice of the durable store the pipeline needs.
type TokenStore interface {
	GetIssuedToken(ctx context.Context, id uuid.UUID) (store.IssuedToken, error)
	UpsertIssuedToken(ctx context.Context, t store.IssuedToken) (store.IssuedToken, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error)
	GetImage(ctx context.Context, id uuid.UUID) (store.ImageBlob, error)
}

// Chain is the blockchain call surface the pipeline consumes.
type Chain interface {
	ChainID() int64
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateMint(ctx context.Context, call chain.MintCall) (uint64, error)
	SimulateMint(ctx context.Context, call chain.MintCall) error
	SubmitMint(ctx context.Context, call chain.MintCall, gasLimit uint64, gasPrice *big.Int) (string, error)
	WaitMined(ctx context.Context, txHash string) (chain.MintReceipt, error)
}

// MetadataStore publishes reward images and metadata documents to
// content-addressable storage.
type MetadataStore interface {
	UploadFile(ctx context.Context, content []byte, meta cas.FileMeta) (string, error)
	UploadJSON(ctx context.Context, doc interface{}, meta cas.FileMeta) (string, error)
}
