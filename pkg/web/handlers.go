// Package web provides HTTP handlers and REST API endpoints for journey
// editing and sync control.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/marketloop/journeysync/pkg/journey"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/publisher"
	"github.com/marketloop/journeysync/pkg/sync"
)

type APIHandlers struct {
	journeyService *journey.Service
	orchestrator   *sync.Orchestrator
	publisher      *publisher.Publisher
	persistence    persistence.Persistence
	validator      *validator.Validate
}

func NewAPIHandlers(
	journeyService *journey.Service,
	orchestrator *sync.Orchestrator,
	pub *publisher.Publisher,
	store persistence.Persistence,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		journeyService: journeyService,
		orchestrator:   orchestrator,
		publisher:      pub,
		persistence:    store,
		validator:      validate,
	}
}

func (h *APIHandlers) GetJourneys(c fiber.Ctx) error {
	req, err := h.parseListJourneysRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.journeyService.ListJourneys(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"journeys":      result.Journeys,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

// parseListJourneysRequest parses and validates query parameters for listing journeys.
func (h *APIHandlers) parseListJourneysRequest(c fiber.Ctx) (*journey.ListJourneysRequest, error) {
	req := &journey.ListJourneysRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.ClientID = c.Query("client_id")

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.JourneyStatus(statusStr)
		req.Status = &status
	}

	return req, nil
}

func (h *APIHandlers) GetJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	found, err := h.journeyService.GetJourney(c.Context(), id)
	if err != nil {
		if persistence.IsJourneyNotFound(err) {
			return notFound(c, "Journey not found")
		}

		return internalError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateJourney(c fiber.Ctx) error {
	var req CreateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.journeyService.CreateJourney(c.Context(), journey.CreateJourneyRequest{
		ClientID:  req.ClientID,
		Name:      req.Name,
		Metadata:  req.Metadata,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateJourney applies a partial update under the optimistic lock. A stale
// submitted version yields a 409 carrying current server state.
func (h *APIHandlers) UpdateJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req UpdateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.journeyService.UpdateJourney(c.Context(), journey.UpdateJourneyRequest{
		ID:               id,
		SubmittedVersion: req.SubmittedVersion,
		Patch: models.JourneyPatch{
			Name:     req.Name,
			Status:   req.Status,
			Metadata: req.Metadata,
		},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	if err := h.journeyService.DeleteJourney(c.Context(), id); err != nil {
		if persistence.IsJourneyNotFound(err) {
			return notFound(c, "Journey not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateVersionSnapshot(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req CreateSnapshotRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	snapshot, err := h.journeyService.CreateVersionSnapshot(c.Context(), id, req.ChangeLog, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

func (h *APIHandlers) GetVersionSnapshots(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	snapshots, err := h.journeyService.ListVersionSnapshots(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"versions": snapshots})
}

func (h *APIHandlers) CreateTouchpoint(c fiber.Ctx) error {
	journeyID := c.Params("id")
	if journeyID == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req CreateTouchpointRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.journeyService.CreateTouchpoint(c.Context(), journey.CreateTouchpointRequest{
		JourneyID: journeyID,
		Type:      req.Type,
		Name:      req.Name,
		Content:   req.Content,
		Config:    req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetTouchpoints(c fiber.Ctx) error {
	journeyID := c.Params("id")
	if journeyID == "" {
		return badRequest(c, "Journey ID is required")
	}

	touchpoints, err := h.journeyService.ListTouchpoints(c.Context(), journeyID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"touchpoints": touchpoints})
}

func (h *APIHandlers) GetTouchpoint(c fiber.Ctx) error {
	id := c.Params("touchpointId")
	if id == "" {
		return badRequest(c, "Touchpoint ID is required")
	}

	found, err := h.journeyService.GetTouchpoint(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) UpdateTouchpoint(c fiber.Ctx) error {
	id := c.Params("touchpointId")
	if id == "" {
		return badRequest(c, "Touchpoint ID is required")
	}

	var req UpdateTouchpointRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.journeyService.UpdateTouchpoint(c.Context(), id, models.TouchpointPatch{
		Name:    req.Name,
		Status:  req.Status,
		Content: req.Content,
		Config:  req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTouchpoint(c fiber.Ctx) error {
	id := c.Params("touchpointId")
	if id == "" {
		return badRequest(c, "Touchpoint ID is required")
	}

	if err := h.journeyService.DeleteTouchpoint(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ReorderTouchpoints reassigns the journey's touchpoint sequence atomically.
func (h *APIHandlers) ReorderTouchpoints(c fiber.Ctx) error {
	journeyID := c.Params("id")
	if journeyID == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req ReorderTouchpointsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.journeyService.ReorderTouchpoints(c.Context(), journeyID, req.OrderedIDs); err != nil {
		return handleServiceError(c, err)
	}

	touchpoints, err := h.journeyService.ListTouchpoints(c.Context(), journeyID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"touchpoints": touchpoints})
}

// GetPublishStatus answers from local data alone; no remote call is made.
func (h *APIHandlers) GetPublishStatus(c fiber.Ctx) error {
	id := c.Params("touchpointId")
	if id == "" {
		return badRequest(c, "Touchpoint ID is required")
	}

	tp, err := h.journeyService.GetTouchpoint(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	status := h.publisher.StatusFor(tp)

	return c.JSON(fiber.Map{
		"touchpoint_id":      tp.ID,
		"status":             status,
		"remote_template_id": tp.RemoteTemplateID,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.journeyService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "JourneySync API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "JourneySync API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
