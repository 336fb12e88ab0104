package models

import "time"

// TouchpointType identifies the kind of step a touchpoint represents. Only
// email and SMS touchpoints map to remote templates; every other type lives
// purely in the local store.
type TouchpointType string

const (
	TouchpointTypeEmail     TouchpointType = "email"
	TouchpointTypeSMS       TouchpointType = "sms"
	TouchpointTypeWait      TouchpointType = "wait"
	TouchpointTypeCondition TouchpointType = "condition"
	TouchpointTypeTask      TouchpointType = "task"
	TouchpointTypeTrigger   TouchpointType = "trigger"
	TouchpointTypeForm      TouchpointType = "form"
	TouchpointTypeCall      TouchpointType = "call"
	TouchpointTypeNote      TouchpointType = "note"
)

// ValidTouchpointType reports whether t is one of the known touchpoint types.
func ValidTouchpointType(t TouchpointType) bool {
	switch t {
	case TouchpointTypeEmail, TouchpointTypeSMS, TouchpointTypeWait,
		TouchpointTypeCondition, TouchpointTypeTask, TouchpointTypeTrigger,
		TouchpointTypeForm, TouchpointTypeCall, TouchpointTypeNote:
		return true
	}

	return false
}

// TouchpointStatus represents the approval state of a single touchpoint.
type TouchpointStatus string

const (
	TouchpointStatusDraft     TouchpointStatus = "draft"
	TouchpointStatusApproved  TouchpointStatus = "approved"
	TouchpointStatusPublished TouchpointStatus = "published"
)

// Touchpoint is one step of a journey. OrderIndex values are distinct within
// a journey and define the sequence. Content and Config are type-specific
// free-form payloads authored upstream; they are validated against per-type
// schemas but otherwise carried opaquely.
type Touchpoint struct {
	ID               string           `json:"id"`
	JourneyID        string           `json:"journey_id" validate:"required"`
	Type             TouchpointType   `json:"type"       validate:"required"`
	Name             string           `json:"name"`
	OrderIndex       int              `json:"order_index"`
	Content          map[string]any   `json:"content,omitempty"`
	Config           map[string]any   `json:"config,omitempty"`
	RemoteTemplateID string           `json:"remote_template_id,omitempty"`
	Status           TouchpointStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Publishable reports whether the touchpoint type maps to a remote template.
func (t *Touchpoint) Publishable() bool {
	return t.Type == TouchpointTypeEmail || t.Type == TouchpointTypeSMS
}

// TouchpointPatch describes a partial update to a touchpoint. Nil fields are
// left untouched. RemoteTemplateID is deliberately absent: once set by the
// publisher it is never changed through the edit path.
type TouchpointPatch struct {
	Name    *string           `json:"name,omitempty"`
	Status  *TouchpointStatus `json:"status,omitempty"`
	Content map[string]any    `json:"content,omitempty"`
	Config  map[string]any    `json:"config,omitempty"`
}

// Apply copies the non-nil patch fields onto the touchpoint.
func (p TouchpointPatch) Apply(t *Touchpoint) {
	if p.Name != nil {
		t.Name = *p.Name
	}

	if p.Status != nil {
		t.Status = *p.Status
	}

	if p.Content != nil {
		t.Content = p.Content
	}

	if p.Config != nil {
		t.Config = p.Config
	}
}
