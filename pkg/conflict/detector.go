package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/remote"
)

// RemoteReader is the read-only slice of the remote API the detector needs.
type RemoteReader interface {
	TemplateMeta(ctx context.Context, locationID, templateID string) (*remote.TemplateMeta, error)
	WorkflowStepCount(ctx context.Context, locationID, workflowID string) (int, error)
}

// LedgerReader looks up the last recorded publish state for a touchpoint.
type LedgerReader interface {
	Entry(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error)
}

// Detector compares local journey state against the remote platform's copy.
// Detection only reads; it never writes to the remote, the ledger or the
// store.
type Detector struct {
	remote RemoteReader
	ledger LedgerReader
	logger *slog.Logger
}

func NewDetector(remoteReader RemoteReader, ledgerReader LedgerReader, logger *slog.Logger) *Detector {
	return &Detector{
		remote: remoteReader,
		ledger: ledgerReader,
		logger: logger.With(slog.String("module", "conflict")),
	}
}

// DetectJourney inspects one journey and its touchpoints and returns every
// divergence found. An empty slice means the journey is safe to sync.
func (d *Detector) DetectJourney(ctx context.Context, locationID string, journey *models.Journey, touchpoints []*models.Touchpoint) ([]Conflict, error) {
	var conflicts []Conflict

	if workflowID := journey.RemoteWorkflowID(); workflowID != "" {
		c, err := d.checkStepCount(ctx, locationID, workflowID, journey, touchpoints)
		if err != nil {
			return nil, err
		}

		if c != nil {
			conflicts = append(conflicts, *c)
		}
	}

	for _, tp := range touchpoints {
		c, err := d.checkTouchpoint(ctx, locationID, journey.ID, tp)
		if err != nil {
			return nil, err
		}

		if c != nil {
			conflicts = append(conflicts, *c)
		}
	}

	return conflicts, nil
}

func (d *Detector) checkStepCount(ctx context.Context, locationID, workflowID string, journey *models.Journey, touchpoints []*models.Touchpoint) (*Conflict, error) {
	remoteCount, err := d.remote.WorkflowStepCount(ctx, locationID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("fetching remote workflow %s: %w", workflowID, err)
	}

	localCount := len(touchpoints)
	if remoteCount == localCount {
		return nil, nil
	}

	d.logger.WarnContext(ctx, "Remote workflow step count diverged",
		"journey_id", journey.ID, "local", localCount, "remote", remoteCount)

	return &Conflict{
		Kind:      KindStepCountMismatch,
		JourneyID: journey.ID,
		Local:     strconv.Itoa(localCount),
		Remote:    strconv.Itoa(remoteCount),
		Detail:    fmt.Sprintf("remote workflow %s has %d steps, local journey has %d", workflowID, remoteCount, localCount),
	}, nil
}

// checkTouchpoint compares the remote template against the ledger's record
// of what was last published. The fingerprint comparison is authoritative;
// when the platform omits fingerprints the modification timestamp is the
// fallback signal.
func (d *Detector) checkTouchpoint(ctx context.Context, locationID, journeyID string, tp *models.Touchpoint) (*Conflict, error) {
	if tp.RemoteTemplateID == "" || !tp.Publishable() {
		return nil, nil
	}

	entry, err := d.ledger.Entry(ctx, tp.ID)
	if err != nil {
		if persistence.IsLedgerEntryNotFound(err) {
			// Never published through us; nothing to diverge from.
			return nil, nil
		}

		return nil, fmt.Errorf("reading ledger for touchpoint %s: %w", tp.ID, err)
	}

	meta, err := d.remote.TemplateMeta(ctx, locationID, tp.RemoteTemplateID)
	if err != nil {
		if errors.Is(err, remote.ErrTemplateNotFound) {
			return &Conflict{
				Kind:         KindExternalModification,
				JourneyID:    journeyID,
				TouchpointID: tp.ID,
				Local:        entry.ContentHash,
				Remote:       "",
				Detail:       fmt.Sprintf("remote template %s was deleted", tp.RemoteTemplateID),
			}, nil
		}

		return nil, fmt.Errorf("fetching remote template %s: %w", tp.RemoteTemplateID, err)
	}

	if meta.Fingerprint != "" {
		if meta.Fingerprint == entry.ContentHash {
			return nil, nil
		}

		return &Conflict{
			Kind:         KindExternalModification,
			JourneyID:    journeyID,
			TouchpointID: tp.ID,
			Local:        entry.ContentHash,
			Remote:       meta.Fingerprint,
			Detail:       "remote template content no longer matches the last recorded publish",
		}, nil
	}

	if !meta.UpdatedAt.IsZero() && meta.UpdatedAt.After(entry.PublishedAt.Add(clockSkewTolerance)) {
		return &Conflict{
			Kind:         KindExternalModification,
			JourneyID:    journeyID,
			TouchpointID: tp.ID,
			Local:        entry.PublishedAt.UTC().Format(time.RFC3339),
			Remote:       meta.UpdatedAt.UTC().Format(time.RFC3339),
			Detail:       "remote template was modified after the last recorded publish",
		}, nil
	}

	return nil, nil
}

// clockSkewTolerance absorbs small clock differences between us and the
// platform when falling back to timestamp comparison.
const clockSkewTolerance = 2 * time.Second
