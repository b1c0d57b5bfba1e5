package controllers

import (
	"context"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/gin-gonic/gin"
)

// DiagnosticLister pages through persisted diagnostic entries
type DiagnosticLister interface {
	Page(ctx context.Context, logType string, offset, limit int) ([]models.DiagnosticLog, int64, error)
}

// DiagnosticsController exposes diagnostic entries to operators, mostly
// captured payments that still need reconciliation.
type DiagnosticsController struct {
	store DiagnosticLister
}

func NewDiagnosticsController(store DiagnosticLister) *DiagnosticsController {
	return &DiagnosticsController{store: store}
}

// List handles GET /api/diagnostics?type=&page=&limit=
func (dc *DiagnosticsController) List(c *gin.Context) {
	pagination := utils.NewPagination(c)
	entries, total, err := dc.store.Page(c.Request.Context(), c.Query("type"), pagination.Offset, pagination.Limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	pagination.SetTotal(total)
	utils.SendPaginatedResponse(c, entries, pagination)
}
