package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/http/middleware"
	"github.com/coursebridge/migration-backend/internal/http/response"
	"github.com/coursebridge/migration-backend/internal/logger"
	"github.com/coursebridge/migration-backend/internal/services"
)

// stepRequest mirrors the admin surface's step payload: which phase to
// run, which page, how many entities per page, and whether already
// migrated courses should be replaced.
type stepRequest struct {
	Item   string `json:"item" binding:"required"`
	Paged  int    `json:"paged"`
	Number int    `json:"number"`
	Force  bool   `json:"force"`
}

// stepData is the payload half of a step response. NextMigrateItem is the
// next phase name, or false once the run is complete.
type stepData struct {
	MigratedTotal      int64  `json:"migrated_total"`
	NextPage           int    `json:"next_page"`
	NextMigrateItem    any    `json:"next_migrate_item"`
	MigrateSuccessHTML string `json:"migrate_success_html,omitempty"`
}

type MigrationHandler struct {
	log          *logger.Logger
	orchestrator services.Orchestrator
}

func NewMigrationHandler(log *logger.Logger, orchestrator services.Orchestrator) *MigrationHandler {
	handlerLog := log.With("handler", "MigrationHandler")
	return &MigrationHandler{log: handlerLog, orchestrator: orchestrator}
}

func (h *MigrationHandler) Step(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.orchestrator.Step(c.Request.Context(), services.StepRequest{
		Phase:    req.Item,
		Page:     req.Paged,
		PageSize: req.Number,
		Operator: c.GetString(middleware.ContextKeyOperator),
		Force:    req.Force,
	})
	if err != nil {
		if errors.Is(err, migration.ErrInvalidPhase) {
			response.RespondError(c, http.StatusBadRequest, "invalid_phase", err)
			return
		}
		h.log.Error("Migration step failed", "phase", req.Item, "page", req.Paged, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "step_failed", err)
		return
	}

	data := stepData{
		MigratedTotal:      result.MigratedTotal,
		NextPage:           result.NextPage,
		MigrateSuccessHTML: result.SuccessHTML,
	}
	if result.Done {
		data.NextMigrateItem = false
	} else {
		data.NextMigrateItem = string(result.NextPhase)
	}
	response.RespondOK(c, "step completed", data)
}

func (h *MigrationHandler) ClearProgress(c *gin.Context) {
	if err := h.orchestrator.Clear(c.Request.Context()); err != nil {
		h.log.Error("Failed to clear migration progress", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "clear_failed", err)
		return
	}
	response.RespondOK(c, "migration progress cleared", nil)
}

func (h *MigrationHandler) Status(c *gin.Context) {
	report, err := h.orchestrator.Report(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to build migration report", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	response.RespondOK(c, "migration status", report)
}

// HealthCheck is unauthenticated liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
