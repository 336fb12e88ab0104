package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/sync"
)

const defaultRunHistoryLimit = 20

// TriggerSyncRun starts a synchronous run for the requested scope and
// returns its structured report.
func (h *APIHandlers) TriggerSyncRun(c fiber.Ctx) error {
	var req TriggerSyncRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	var resolution conflict.Resolution

	if req.Resolution != "" {
		parsed, err := conflict.ParseResolution(req.Resolution)
		if err != nil {
			return badRequest(c, err.Error())
		}

		resolution = parsed
	}

	run, err := h.orchestrator.Run(c.Context(), sync.RunRequest{
		Scope: models.SyncScope{
			ClientID:  req.ClientID,
			JourneyID: req.JourneyID,
		},
		DryRun:     req.DryRun,
		Force:      req.Force,
		Resolution: resolution,
	})
	if err != nil {
		if run != nil {
			// The run failed partway; the persisted report carries the error.
			return c.Status(fiber.StatusUnprocessableEntity).JSON(run)
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) GetSyncRuns(c fiber.Ctx) error {
	limit := defaultRunHistoryLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}

		limit = parsed
	}

	runs, err := h.persistence.SyncRunRepository().List(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetSyncRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Sync run ID is required")
	}

	run, err := h.persistence.SyncRunRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetOpenConflicts(c fiber.Ctx) error {
	records, err := h.persistence.ConflictRepository().ListOpen(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"conflicts": records})
}

// ResolveConflict applies an explicit policy to one open conflict record.
func (h *APIHandlers) ResolveConflict(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conflict ID is required")
	}

	var req ResolveConflictRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.orchestrator.ResolveConflict(c.Context(), id, conflict.Resolution(req.Resolution))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}
