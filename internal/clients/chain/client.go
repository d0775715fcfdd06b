package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"sbt-engine/internal/observability"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// mintABIJSON is the public call surface of the deployed badge contract.
// Only mintBadge is consumed; the contract's internal logic is out of scope.
const mintABIJSON = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"string","name":"shopId","type":"string"},{"internalType":"string","name":"tokenURI","type":"string"}],"name":"mintBadge","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}]`

// transferTopic identifies the ERC-721 Transfer event in mint receipts; the
// minted token id rides in the third indexed argument.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// MintCall describes one mint invocation against the badge contract.
type MintCall struct {
	RecipientAddress string
	ShopID           string
	TokenURI         string
}

// MintReceipt is the domain view of a mined mint transaction.
type MintReceipt struct {
	TxHash      string
	TokenID     *int64
	BlockNumber uint64
	GasUsed     uint64
	Reverted    bool
}

// Client wraps an EVM JSON-RPC endpoint plus a local signing key.
type Client struct {
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address
	chainID  *big.Int
	mintABI  abi.ABI
	logger   *observability.Logger
}

func New(rpcURL, minterKeyHex, contractAddress string, chainID int64, logger *observability.Logger) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(minterKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse minter key: %w", err)
	}

	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}

	mintABI, err := abi.JSON(strings.NewReader(mintABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mint abi: %w", err)
	}

	return &Client{
		eth:      eth,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(contractAddress),
		chainID:  big.NewInt(chainID),
		mintABI:  mintABI,
		logger:   logger,
	}, nil
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() int64 {
	return c.chainID.Int64()
}

// SuggestGasPrice queries the current network gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	return price, nil
}

// Balance returns the minter account balance.
func (c *Client) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (c *Client) callMsg(call MintCall) (ethereum.CallMsg, error) {
	if !common.IsHexAddress(call.RecipientAddress) {
		return ethereum.CallMsg{}, fmt.Errorf("invalid recipient address %q", call.RecipientAddress)
	}
	data, err := c.mintABI.Pack("mintBadge", common.HexToAddress(call.RecipientAddress), call.ShopID, call.TokenURI)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("failed to pack mint call: %w", err)
	}
	return ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	}, nil
}

// EstimateMint estimates the gas the mint call would consume.
func (c *Client) EstimateMint(ctx context.Context, call MintCall) (uint64, error) {
	msg, err := c.callMsg(call)
	if err != nil {
		return 0, err
	}
	gas, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// SimulateMint executes the mint as a read-only call to surface a revert
// reason before any gas is spent.
func (c *Client) SimulateMint(ctx context.Context, call MintCall) error {
	msg, err := c.callMsg(call)
	if err != nil {
		return err
	}
	if _, err := c.eth.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("mint simulation failed: %w", err)
	}
	return nil
}

// SubmitMint signs and sends the real mint transaction, returning its hash.
func (c *Client) SubmitMint(ctx context.Context, call MintCall, gasLimit uint64, gasPrice *big.Int) (string, error) {
	msg, err := c.callMsg(call)
	if err != nil {
		return "", err
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     msg.Data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign mint transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send mint transaction: %w", err)
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "tx_hash", Value: signedTx.Hash().Hex()})
	c.logger.Info(ctx, "mint transaction submitted")
	return signedTx.Hash().Hex(), nil
}

// WaitMined blocks until a receipt for the transaction is available or the
// context expires.
func (c *Client) WaitMined(ctx context.Context, txHash string) (MintReceipt, error) {
	hash := common.HexToHash(txHash)
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return c.toMintReceipt(receipt), nil
		}
		if err != ethereum.NotFound {
			return MintReceipt{}, fmt.Errorf("failed to fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return MintReceipt{}, fmt.Errorf("gave up waiting for receipt: %w", ctx.Err())
		case <-receiptPollDelay(ctx):
		}
	}
}

func (c *Client) toMintReceipt(receipt *types.Receipt) MintReceipt {
	out := MintReceipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Reverted:    receipt.Status != types.ReceiptStatusSuccessful,
	}
	for _, l := range receipt.Logs {
		if l.Address == c.contract && len(l.Topics) == 4 && l.Topics[0] == transferTopic {
			id := new(big.Int).SetBytes(l.Topics[3].Bytes()).Int64()
			out.TokenID = &id
			break
		}
	}
	return out
}
