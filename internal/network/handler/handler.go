package handler

import (
	"context"
	"math/big"
	"net/http"

	"sbt-engine/internal/apierrors"
	"sbt-engine/internal/observability"

	"github.com/gin-gonic/gin"
)

// ChainStatus is the slice of the chain client the status endpoint needs.
type ChainStatus interface {
	ChainID() int64
	Balance(ctx context.Context) (*big.Int, error)
}

type Handler struct {
	chain           ChainStatus
	contractAddress string
	logger          *observability.Logger
}

func New(chain ChainStatus, contractAddress string, logger *observability.Logger) Handler {
	return Handler{
		chain:           chain,
		contractAddress: contractAddress,
		logger:          logger,
	}
}

// HandleGetNetworkStatus reports the configured chain and the minter balance,
// so the dashboard can warn before mints start failing on gas.
func (h *Handler) HandleGetNetworkStatus(c *gin.Context) {
	ctx := c.Request.Context()

	balance, err := h.chain.Balance(ctx)
	if err != nil {
		h.logger.Error(ctx, "failed to read minter balance", err)
		apierrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chainId":         h.chain.ChainID(),
		"contractAddress": h.contractAddress,
		"minterBalance":   balance.String(),
	})
}
