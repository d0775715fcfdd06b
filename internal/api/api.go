package api

import (
	"net/http"

	authHandler "sbt-engine/internal/auth/handler"
	issuanceHandler "sbt-engine/internal/issuance/handler"
	networkHandler "sbt-engine/internal/network/handler"
	paymentsHandler "sbt-engine/internal/payments/handler"
	templatesHandler "sbt-engine/internal/templates/handler"
	transferHandler "sbt-engine/internal/transfer/handler"

	"github.com/gin-gonic/gin"
)

// LedgerStatus reports whether the ledger has served any read from its
// mirror namespace.
type LedgerStatus interface {
	Degraded() bool
}

type API struct {
	router           *gin.RouterGroup
	authHandler      authHandler.Handler
	templatesHandler templatesHandler.Handler
	issuanceHandler  issuanceHandler.Handler
	paymentsHandler  paymentsHandler.Handler
	transferHandler  transferHandler.Handler
	networkHandler   networkHandler.Handler
	ledger           LedgerStatus
}

func New(
	router *gin.RouterGroup,
	authHandler authHandler.Handler,
	templatesHandler templatesHandler.Handler,
	issuanceHandler issuanceHandler.Handler,
	paymentsHandler paymentsHandler.Handler,
	transferHandler transferHandler.Handler,
	networkHandler networkHandler.Handler,
	ledger LedgerStatus,
) API {
	return API{
		router:           router,
		authHandler:      authHandler,
		templatesHandler: templatesHandler,
		issuanceHandler:  issuanceHandler,
		paymentsHandler:  paymentsHandler,
		transferHandler:  transferHandler,
		networkHandler:   networkHandler,
		ledger:           ledger,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.POST("/login", a.authHandler.HandleLogin)
	}
	protectedGroup := apiGroup.Group("/protected", a.authHandler.HandleJWTMiddleware)
	{
		protectedGroup.POST("/templates", a.templatesHandler.HandleCreateTemplate)
		protectedGroup.GET("/templates", a.templatesHandler.HandleListTemplates)
		protectedGroup.GET("/templates/:template_id", a.templatesHandler.HandleGetTemplate)
		protectedGroup.PATCH("/templates/:template_id", a.templatesHandler.HandleUpdateTemplate)
		protectedGroup.DELETE("/templates/:template_id", a.templatesHandler.HandleDeleteTemplate)

		protectedGroup.POST("/images", a.templatesHandler.HandleUploadImage)
		protectedGroup.GET("/images/:image_id", a.templatesHandler.HandleGetImage)

		protectedGroup.POST("/issuance", a.issuanceHandler.HandleIssue)
		protectedGroup.GET("/tokens", a.issuanceHandler.HandleListTokens)
		protectedGroup.GET("/progress/:template_id", a.issuanceHandler.HandleGetProgress)
		protectedGroup.POST("/tokens/:token_id/retry-mint", a.issuanceHandler.HandleRetryMint)

		protectedGroup.GET("/network", a.networkHandler.HandleGetNetworkStatus)

		protectedGroup.GET("/export", a.transferHandler.HandleExport)
		protectedGroup.POST("/import", a.transferHandler.HandleImport)
	}
	apiGroup.POST("/payments/webhook", a.paymentsHandler.HandleWebhook)
}

// Health reports liveness plus the non-blocking degraded-ledger notice the
// dashboard polls for.
func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok", "degraded": a.ledger.Degraded()})
	})
}
