package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJourneyPatch_Apply(t *testing.T) {
	journey := &Journey{
		ID:       "j-1",
		Name:     "Welcome Flow",
		Status:   JourneyStatusDraft,
		Metadata: map[string]any{"team": "growth"},
	}

	name := "Onboarding Flow"
	status := JourneyStatusApproved

	patch := JourneyPatch{
		Name:     &name,
		Status:   &status,
		Metadata: map[string]any{"owner": "ops"},
	}

	patch.Apply(journey)

	assert.Equal(t, "Onboarding Flow", journey.Name)
	assert.Equal(t, JourneyStatusApproved, journey.Status)
	assert.Equal(t, "growth", journey.Metadata["team"])
	assert.Equal(t, "ops", journey.Metadata["owner"])
}

func TestJourneyPatch_ApplyNilFieldsLeaveJourneyUntouched(t *testing.T) {
	journey := &Journey{
		Name:   "Welcome Flow",
		Status: JourneyStatusClientReview,
	}

	JourneyPatch{}.Apply(journey)

	assert.Equal(t, "Welcome Flow", journey.Name)
	assert.Equal(t, JourneyStatusClientReview, journey.Status)
}

func TestJourney_Syncable(t *testing.T) {
	tests := []struct {
		status   JourneyStatus
		syncable bool
	}{
		{JourneyStatusDraft, false},
		{JourneyStatusClientReview, false},
		{JourneyStatusApproved, true},
		{JourneyStatusPublished, true},
		{JourneyStatusRejected, false},
		{JourneyStatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			journey := &Journey{Status: tt.status}
			assert.Equal(t, tt.syncable, journey.Syncable())
		})
	}
}

func TestJourney_RemoteWorkflowID(t *testing.T) {
	journey := &Journey{}
	assert.Empty(t, journey.RemoteWorkflowID())

	journey.Metadata = map[string]any{"remote_workflow_id": "wf-42"}
	assert.Equal(t, "wf-42", journey.RemoteWorkflowID())

	journey.Metadata["remote_workflow_id"] = 7
	assert.Empty(t, journey.RemoteWorkflowID())
}

func TestTouchpointPatch_ApplyDoesNotTouchRemoteTemplateID(t *testing.T) {
	tp := &Touchpoint{
		Name:             "Welcome Email",
		RemoteTemplateID: "tmpl-1",
		Content:          map[string]any{"subject": "Hi"},
	}

	name := "Intro Email"
	TouchpointPatch{
		Name:    &name,
		Content: map[string]any{"subject": "Hello"},
	}.Apply(tp)

	assert.Equal(t, "Intro Email", tp.Name)
	assert.Equal(t, "Hello", tp.Content["subject"])
	assert.Equal(t, "tmpl-1", tp.RemoteTemplateID)
}

func TestTouchpoint_Publishable(t *testing.T) {
	assert.True(t, (&Touchpoint{Type: TouchpointTypeEmail}).Publishable())
	assert.True(t, (&Touchpoint{Type: TouchpointTypeSMS}).Publishable())
	assert.False(t, (&Touchpoint{Type: TouchpointTypeWait}).Publishable())
	assert.False(t, (&Touchpoint{Type: TouchpointTypeCondition}).Publishable())
}
