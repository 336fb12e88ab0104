// Package publisher pushes publishable touchpoints to the external workflow
// platform as email or SMS templates, consulting the publish state ledger so
// unchanged content is never re-sent.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/remote"
)

// Action describes what a publish call did.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Result is the outcome of publishing one touchpoint.
type Result struct {
	TouchpointID     string `json:"touchpoint_id"`
	Action           Action `json:"action"`
	RemoteTemplateID string `json:"remote_template_id,omitempty"`
	ContentHash      string `json:"content_hash"`
}

// Options adjusts a single publish call. Force bypasses the ledger gate but
// a confirmed publish is still recorded. DryRun computes the would-be action
// without calling the platform or writing the ledger.
type Options struct {
	Force  bool
	DryRun bool
}

// TemplateIDRecorder persists a learned remote template id back onto the
// touchpoint so later runs update instead of creating duplicates.
type TemplateIDRecorder interface {
	SetRemoteTemplateID(ctx context.Context, id, remoteTemplateID string) error
}

// Publisher sends touchpoint content to the platform. It owns the
// create-vs-update decision and the ledger bookkeeping around it.
type Publisher struct {
	remote      remote.API
	ledger      *ledger.Service
	touchpoints TemplateIDRecorder
	logger      *slog.Logger
}

func New(remoteAPI remote.API, ledgerService *ledger.Service, touchpoints TemplateIDRecorder, logger *slog.Logger) *Publisher {
	return &Publisher{
		remote:      remoteAPI,
		ledger:      ledgerService,
		touchpoints: touchpoints,
		logger:      logger.With(slog.String("module", "publisher")),
	}
}

// Publish pushes one touchpoint to the platform. Unchanged content is
// skipped unless opts.Force is set. The remote template id and content hash
// are recorded only after the platform confirms the write.
func (p *Publisher) Publish(ctx context.Context, locationID string, tp *models.Touchpoint, opts Options) (*Result, error) {
	if !tp.Publishable() {
		return nil, &NotPublishableError{TouchpointID: tp.ID, Type: tp.Type}
	}

	contentHash, err := ledger.ContentHash(tp)
	if err != nil {
		return nil, fmt.Errorf("hashing touchpoint %s: %w", tp.ID, err)
	}

	if !opts.Force {
		needed, err := p.ledger.ShouldPublish(ctx, tp.ID, contentHash)
		if err != nil {
			return nil, err
		}

		if !needed {
			p.logger.DebugContext(ctx, "Touchpoint unchanged since last publish, skipping",
				"touchpoint_id", tp.ID)

			return &Result{
				TouchpointID:     tp.ID,
				Action:           ActionSkipped,
				RemoteTemplateID: tp.RemoteTemplateID,
				ContentHash:      contentHash,
			}, nil
		}
	}

	action := ActionUpdated
	if tp.RemoteTemplateID == "" {
		action = ActionCreated
	}

	if opts.DryRun {
		p.logger.InfoContext(ctx, "Dry run: would publish touchpoint",
			"touchpoint_id", tp.ID, "action", action)

		return &Result{
			TouchpointID:     tp.ID,
			Action:           action,
			RemoteTemplateID: tp.RemoteTemplateID,
			ContentHash:      contentHash,
		}, nil
	}

	remoteID, kind, err := p.send(ctx, locationID, tp)
	if err != nil {
		return nil, err
	}

	if tp.RemoteTemplateID == "" {
		if err := p.touchpoints.SetRemoteTemplateID(ctx, tp.ID, remoteID); err != nil {
			return nil, fmt.Errorf("recording remote template id for %s: %w", tp.ID, err)
		}

		tp.RemoteTemplateID = remoteID
	}

	if err := p.ledger.RecordPublish(ctx, tp.ID, contentHash, remoteID, kind); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Published touchpoint",
		"touchpoint_id", tp.ID, "action", action, "remote_template_id", remoteID)

	return &Result{
		TouchpointID:     tp.ID,
		Action:           action,
		RemoteTemplateID: remoteID,
		ContentHash:      contentHash,
	}, nil
}

// send performs the create or update call for the touchpoint's kind and
// returns the remote template id.
func (p *Publisher) send(ctx context.Context, locationID string, tp *models.Touchpoint) (string, models.TemplateKind, error) {
	switch tp.Type {
	case models.TouchpointTypeEmail:
		template, err := buildEmailTemplate(tp)
		if err != nil {
			return "", "", err
		}

		if tp.RemoteTemplateID == "" {
			id, err := p.remote.CreateEmailTemplate(ctx, locationID, template)
			if err != nil {
				return "", "", fmt.Errorf("creating email template for %s: %w", tp.ID, err)
			}

			return id, models.TemplateKindEmail, nil
		}

		if err := p.remote.UpdateEmailTemplate(ctx, locationID, tp.RemoteTemplateID, template); err != nil {
			return "", "", fmt.Errorf("updating email template %s: %w", tp.RemoteTemplateID, err)
		}

		return tp.RemoteTemplateID, models.TemplateKindEmail, nil

	case models.TouchpointTypeSMS:
		template, err := buildSMSTemplate(tp)
		if err != nil {
			return "", "", err
		}

		if tp.RemoteTemplateID == "" {
			id, err := p.remote.CreateSMSTemplate(ctx, locationID, template)
			if err != nil {
				return "", "", fmt.Errorf("creating SMS template for %s: %w", tp.ID, err)
			}

			return id, models.TemplateKindSMS, nil
		}

		if err := p.remote.UpdateSMSTemplate(ctx, locationID, tp.RemoteTemplateID, template); err != nil {
			return "", "", fmt.Errorf("updating SMS template %s: %w", tp.RemoteTemplateID, err)
		}

		return tp.RemoteTemplateID, models.TemplateKindSMS, nil
	}

	return "", "", &NotPublishableError{TouchpointID: tp.ID, Type: tp.Type}
}

// Status is the local-only publish state of a touchpoint: published once a
// remote template id is linked, draft while a publishable touchpoint has not
// been pushed yet. Used for display only; idempotency decisions stay with the
// ledger.
type Status string

const (
	StatusPublished      Status = "published"
	StatusDraft          Status = "draft"
	StatusNotPublishable Status = "not_publishable"
)

// StatusFor derives a touchpoint's publish status from local data alone; no
// remote call is made. The remote link is what counts: local edits after a
// publish do not move the touchpoint back to draft.
func (p *Publisher) StatusFor(tp *models.Touchpoint) Status {
	if !tp.Publishable() {
		return StatusNotPublishable
	}

	if tp.RemoteTemplateID != "" {
		return StatusPublished
	}

	return StatusDraft
}
