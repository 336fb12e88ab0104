package models

import "time"

// TemplateKind identifies which remote template family a touchpoint was
// published as.
type TemplateKind string

const (
	TemplateKindEmail TemplateKind = "email"
	TemplateKindSMS   TemplateKind = "sms"
)

// PublishStateEntry records the last confirmed publish of a touchpoint: what
// content was sent (as a hash) and which remote template it became. The ledger
// of these entries is the sole idempotency gate for publishing and must
// survive process restarts. Entries reference touchpoints by id only and
// tolerate the touchpoint being edited or deleted independently.
type PublishStateEntry struct {
	TouchpointID     string       `json:"touchpoint_id" validate:"required"`
	ContentHash      string       `json:"content_hash"  validate:"required"`
	RemoteTemplateID string       `json:"remote_template_id"`
	TemplateKind     TemplateKind `json:"template_kind"`
	PublishedAt      time.Time    `json:"published_at"`
}
