package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sbt-engine/internal/apierrors"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"
	"sbt-engine/internal/transfer/processor"

	"github.com/gin-gonic/gin"
)

// Snapshot uploads are bounded; images dominate the size.
const maxSnapshotBytes = 64 << 20

type Handler struct {
	processor processor.TransferProcessor
	logger    *observability.Logger
}

func New(processor processor.TransferProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// HandleExport streams the full ledger as a downloadable JSON snapshot.
func (h *Handler) HandleExport(c *gin.Context) {
	ctx := c.Request.Context()

	snapshot, err := h.processor.ExportSnapshot(ctx)
	if err != nil {
		h.logger.Error(ctx, "failed to export snapshot", err)
		apierrors.InternalError(c, err)
		return
	}

	filename := fmt.Sprintf("sbt-engine-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, snapshot)
}

// HandleImport merges an uploaded snapshot into the ledger.
func (h *Handler) HandleImport(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes+1))
	if err != nil {
		h.logger.Error(ctx, "failed to read snapshot body", err)
		apierrors.BadRequest(c, "INVALID_REQUEST", "failed to read request body")
		return
	}
	if len(raw) > maxSnapshotBytes {
		apierrors.BadRequest(c, "SNAPSHOT_TOO_LARGE", "snapshot exceeds the size limit")
		return
	}

	snapshot, err := h.processor.ImportSnapshot(ctx, raw)
	if err != nil {
		var partial *processor.PartialImportError
		switch {
		case errors.As(err, &partial):
			h.logger.Error(ctx, "snapshot import stopped mid-way", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "PARTIAL_IMPORT",
				"message": "import failed after some entities were applied",
				"applied": partial.Applied,
			})
		case errors.Is(err, store.ErrValidation):
			apierrors.BadRequest(c, "INVALID_SNAPSHOT", err.Error())
		default:
			h.logger.Error(ctx, "failed to import snapshot", err)
			apierrors.InternalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": len(snapshot.Templates),
		"sbts":      len(snapshot.SBTs),
		"images":    len(snapshot.Images),
	})
}
