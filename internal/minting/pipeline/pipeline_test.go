package pipeline

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"sbt-engine/internal/clients/chain"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"
)

// fakeTokenStore is an in-memory TokenStore; the pipeline's store
// interactions are stateful, so a real map beats per-call expectations.
type fakeTokenStore struct {
	templates map[uuid.UUID]store.Template
	images    map[uuid.UUID]store.ImageBlob
	tokens    map[uuid.UUID]store.IssuedToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		templates: make(map[uuid.UUID]store.Template),
		images:    make(map[uuid.UUID]store.ImageBlob),
		tokens:    make(map[uuid.UUID]store.IssuedToken),
	}
}

func (f *fakeTokenStore) GetIssuedToken(ctx context.Context, id uuid.UUID) (store.IssuedToken, error) {
	t, ok := f.tokens[id]
	if !ok {
		return store.IssuedToken{}, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokenStore) UpsertIssuedToken(ctx context.Context, t store.IssuedToken) (store.IssuedToken, error) {
	f.tokens[t.ID] = t
	return t, nil
}

func (f *fakeTokenStore) GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return store.Template{}, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokenStore) GetImage(ctx context.Context, id uuid.UUID) (store.ImageBlob, error) {
	b, ok := f.images[id]
	if !ok {
		return store.ImageBlob{}, store.ErrNotFound
	}
	return b, nil
}

func testConfig() Config {
	return Config{
		RetryDelay:      time.Millisecond,
		ReceiptTimeout:  100 * time.Millisecond,
		DefaultGasLimit: 300_000,
	}
}

// seedAttempt creates a template and a pending token row.
func seedAttempt(f *fakeTokenStore) store.IssuedToken {
	tpl := store.Template{
		ID:           uuid.New(),
		ShopID:       "coffee-corner",
		Name:         "Coffee Corner Card",
		IssuePattern: store.PatternPerPayment,
		MaxStamps:    3,
		CreatedAt:    time.Now().UTC(),
	}
	f.templates[tpl.ID] = tpl

	token := store.IssuedToken{
		ID:               uuid.New(),
		TemplateID:       tpl.ID,
		RecipientAddress: "0x1111111111111111111111111111111111111111",
		CurrentStamps:    1,
		MaxStamps:        3,
		Status:           store.TokenStatusActive,
		MintStatus:       store.MintStatusPending,
		IssuedAt:         time.Now().UTC(),
	}
	f.tokens[token.ID] = token
	return token
}

func TestRun_HappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)
	logger := observability.NewLogger()

	tokenID := int64(42)
	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).Return(nil)
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), uint64(125_000), big.NewInt(1_000_000_000)).
		Return("0xhash", nil)
	mockChain.EXPECT().WaitMined(gomock.Any(), "0xhash").
		Return(chain.MintReceipt{TxHash: "0xhash", TokenID: &tokenID}, nil)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, logger, testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if got.MintStatus != store.MintStatusSuccess {
		t.Errorf("expected success, got %s", got.MintStatus)
	}
	if got.TxHash == nil || *got.TxHash != "0xhash" {
		t.Errorf("expected tx hash recorded, got %v", got.TxHash)
	}
	if got.TokenID == nil || *got.TokenID != 42 {
		t.Errorf("expected token id 42, got %v", got.TokenID)
	}
	if got.ChainID == nil || *got.ChainID != 137 {
		t.Errorf("expected chain id 137, got %v", got.ChainID)
	}
}

// A reverting simulation ends with a classified failure, no transaction hash,
// and the row still present.
func TestRun_SimulationRevert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).
		Return(errors.New("mint simulation failed: execution reverted: shop closed"))

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if got.MintStatus != store.MintStatusFailed {
		t.Fatalf("expected failed, got %s", got.MintStatus)
	}
	if got.FailReason == nil || *got.FailReason != ReasonContractRevert {
		t.Errorf("expected contract-revert, got %v", got.FailReason)
	}
	if got.TxHash != nil {
		t.Errorf("expected tx hash unset, got %v", *got.TxHash)
	}
}

// Metadata upload failure substitutes a placeholder and flags the row for
// repair; minting still proceeds.
func TestRun_MetadataFailureUsesPlaceholder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("pin request returned 503"))
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	var submittedCall chain.MintCall
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, call chain.MintCall) error {
			submittedCall = call
			return nil
		})
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("0xhash", nil)
	mockChain.EXPECT().WaitMined(gomock.Any(), "0xhash").Return(chain.MintReceipt{TxHash: "0xhash"}, nil)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if !got.NeedsMetadataRepair {
		t.Error("expected needs_metadata_repair to be set")
	}
	if want := "local://pending-metadata/" + token.ID.String(); submittedCall.TokenURI != want {
		t.Errorf("expected placeholder uri %q, got %q", want, submittedCall.TokenURI)
	}
	if got.MintStatus != store.MintStatusSuccess {
		t.Errorf("expected success despite metadata failure, got %s", got.MintStatus)
	}
}

// A failed gas price query falls back to the per-chain default.
func TestRun_GasPriceFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(nil, errors.New("connection refused"))
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).Return(nil)
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), gomock.Any(), defaultGasPrices[137]).
		Return("0xhash", nil)
	mockChain.EXPECT().WaitMined(gomock.Any(), "0xhash").Return(chain.MintReceipt{TxHash: "0xhash"}, nil)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

// An RPC failure triggers exactly one delayed retry with a reduced gas limit.
func TestRun_NetworkFailureRetriesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).Return(nil)
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), uint64(125_000), gomock.Any()).
		Return("", errors.New("connection refused"))
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), uint64(110_000), gomock.Any()).
		Return("0xhash", nil)
	mockChain.EXPECT().WaitMined(gomock.Any(), "0xhash").Return(chain.MintReceipt{TxHash: "0xhash"}, nil)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if got.MintStatus != store.MintStatusSuccess {
		t.Errorf("expected success after retry, got %s", got.MintStatus)
	}
}

func TestRun_RetryExhaustionClassifiesNetworkFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).Return(nil)
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("connection refused")).Times(2)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if got.MintStatus != store.MintStatusFailed {
		t.Fatalf("expected failed, got %s", got.MintStatus)
	}
	if got.FailReason == nil || *got.FailReason != ReasonNetworkUnreachable {
		t.Errorf("expected network-unreachable, got %v", got.FailReason)
	}
}

// A receipt with reverted status fails with the tx hash preserved.
func TestRun_RevertedReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	mockChain := NewMockChain(ctrl)
	mockMeta := NewMockMetadataStore(ctrl)

	mockMeta.EXPECT().UploadJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return("QmMeta", nil)
	mockChain.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1_000_000_000), nil)
	mockChain.EXPECT().EstimateMint(gomock.Any(), gomock.Any()).Return(uint64(100_000), nil)
	mockChain.EXPECT().SimulateMint(gomock.Any(), gomock.Any()).Return(nil)
	mockChain.EXPECT().SubmitMint(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("0xhash", nil)
	mockChain.EXPECT().WaitMined(gomock.Any(), "0xhash").
		Return(chain.MintReceipt{TxHash: "0xhash", Reverted: true}, nil)
	mockChain.EXPECT().ChainID().Return(int64(137)).AnyTimes()

	p := New(fakeStore, mockChain, mockMeta, observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}

	got := fakeStore.tokens[token.ID]
	if got.MintStatus != store.MintStatusFailed {
		t.Fatalf("expected failed, got %s", got.MintStatus)
	}
	if got.FailReason == nil || *got.FailReason != ReasonContractRevert {
		t.Errorf("expected contract-revert, got %v", got.FailReason)
	}
	if got.TxHash == nil || *got.TxHash != "0xhash" {
		t.Errorf("expected tx hash preserved, got %v", got.TxHash)
	}
}

// A row already in a terminal state is skipped without network calls.
func TestRun_TerminalRowSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fakeStore := newFakeTokenStore()
	token := seedAttempt(fakeStore)
	token.MintStatus = store.MintStatusSuccess
	fakeStore.tokens[token.ID] = token

	p := New(fakeStore, NewMockChain(ctrl), NewMockMetadataStore(ctrl), observability.NewLogger(), testConfig())
	if err := p.Run(context.Background(), token.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("insufficient funds for gas * price + value"), ReasonInsufficientFunds},
		{errors.New("execution reverted: not eligible"), ReasonContractRevert},
		{errors.New("user rejected the request"), ReasonUserRejected},
		{errors.New("dial tcp: connection refused"), ReasonNetworkUnreachable},
		{context.DeadlineExceeded, ReasonNetworkUnreachable},
		{errors.New("something odd happened"), ReasonUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
