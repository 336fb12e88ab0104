package journey

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marketloop/journeysync/pkg/models"
)

// CreateTouchpointRequest describes a new touchpoint appended to a journey.
type CreateTouchpointRequest struct {
	JourneyID string                `json:"journey_id" validate:"required"`
	Type      models.TouchpointType `json:"type"       validate:"required"`
	Name      string                `json:"name"`
	Content   map[string]any        `json:"content,omitempty"`
	Config    map[string]any        `json:"config,omitempty"`
}

// CreateTouchpoint appends a touchpoint at the end of the journey's sequence.
func (s *Service) CreateTouchpoint(ctx context.Context, req CreateTouchpointRequest) (*models.Touchpoint, error) {
	if !models.ValidTouchpointType(req.Type) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, req.Type)
	}

	if err := models.ValidateContent(req.Type, req.Content); err != nil {
		return nil, &ValidationError{Field: "content", Message: err.Error(), Err: err}
	}

	// Journey must exist; touchpoints are exclusively owned.
	if _, err := s.persistence.JourneyRepository().GetByID(ctx, req.JourneyID); err != nil {
		return nil, err
	}

	existing, err := s.persistence.TouchpointRepository().ListByJourney(ctx, req.JourneyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load touchpoints: %w", err)
	}

	nextIndex := 0
	for _, tp := range existing {
		if tp.OrderIndex >= nextIndex {
			nextIndex = tp.OrderIndex + 1
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate touchpoint ID: %w", err)
	}

	touchpoint := &models.Touchpoint{
		ID:         id.String(),
		JourneyID:  req.JourneyID,
		Type:       req.Type,
		Name:       req.Name,
		OrderIndex: nextIndex,
		Content:    req.Content,
		Config:     req.Config,
		Status:     models.TouchpointStatusDraft,
	}

	if err := s.persistence.TouchpointRepository().Save(ctx, touchpoint); err != nil {
		return nil, err
	}

	return touchpoint, nil
}

// GetTouchpoint retrieves a touchpoint by id.
func (s *Service) GetTouchpoint(ctx context.Context, id string) (*models.Touchpoint, error) {
	return s.persistence.TouchpointRepository().GetByID(ctx, id)
}

// ListTouchpoints returns the journey's touchpoints in sequence order.
func (s *Service) ListTouchpoints(ctx context.Context, journeyID string) ([]*models.Touchpoint, error) {
	return s.persistence.TouchpointRepository().ListByJourney(ctx, journeyID)
}

// UpdateTouchpoint applies a partial update. The remote template link is not
// patchable here; only the publisher writes it.
func (s *Service) UpdateTouchpoint(ctx context.Context, id string, patch models.TouchpointPatch) (*models.Touchpoint, error) {
	touchpoint, err := s.persistence.TouchpointRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		if err := models.ValidateContent(touchpoint.Type, patch.Content); err != nil {
			return nil, &ValidationError{Field: "content", Message: err.Error(), Err: err}
		}
	}

	patch.Apply(touchpoint)

	if err := s.persistence.TouchpointRepository().Save(ctx, touchpoint); err != nil {
		return nil, err
	}

	return touchpoint, nil
}

// DeleteTouchpoint removes a touchpoint. Its ledger entry, if any, is left
// behind; the ledger references touchpoints weakly.
func (s *Service) DeleteTouchpoint(ctx context.Context, id string) error {
	return s.persistence.TouchpointRepository().Delete(ctx, id)
}

// ReorderTouchpoints applies a new sequence to the journey's touchpoints as a
// single all-or-nothing operation.
func (s *Service) ReorderTouchpoints(ctx context.Context, journeyID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return &ValidationError{Field: "touchpoint_ids", Message: "ordered id list is empty"}
	}

	return s.persistence.TouchpointRepository().Reorder(ctx, journeyID, orderedIDs)
}
