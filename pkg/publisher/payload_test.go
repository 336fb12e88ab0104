package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/journeysync/pkg/models"
)

func TestBuildEmailTemplate_FieldPrecedence(t *testing.T) {
	tp := &models.Touchpoint{
		ID:   "tp-1",
		Type: models.TouchpointTypeEmail,
		Name: "Welcome Email",
		Content: map[string]any{
			"subject": "Hello from content",
			"html":    "<p>html fallback</p>",
		},
		Config: map[string]any{
			"subject": "Hello from config",
			"content": "config body",
		},
	}

	template, err := buildEmailTemplate(tp)
	require.NoError(t, err)

	assert.Equal(t, "Welcome Email", template.Name)
	assert.Equal(t, "Hello from content", template.Subject)
	assert.Equal(t, "config body", template.Body)
}

func TestBuildEmailTemplate_HTMLIsLastResortBody(t *testing.T) {
	tp := &models.Touchpoint{
		ID:      "tp-1",
		Type:    models.TouchpointTypeEmail,
		Name:    "Welcome Email",
		Content: map[string]any{"html": "<p>only html</p>"},
	}

	template, err := buildEmailTemplate(tp)
	require.NoError(t, err)
	assert.Equal(t, "<p>only html</p>", template.Body)
}

func TestBuildEmailTemplate_EmptyFieldsAreAccepted(t *testing.T) {
	tp := &models.Touchpoint{ID: "tp-1", Type: models.TouchpointTypeEmail, Name: "Draft"}

	template, err := buildEmailTemplate(tp)
	require.NoError(t, err)
	assert.Empty(t, template.Subject)
	assert.Empty(t, template.Body)
}

func TestBuildEmailTemplate_RequiresName(t *testing.T) {
	tp := &models.Touchpoint{ID: "tp-1", Type: models.TouchpointTypeEmail}

	_, err := buildEmailTemplate(tp)
	require.Error(t, err)
	assert.True(t, IsInvalidPayload(err))

	payloadErr := &PayloadError{}
	require.ErrorAs(t, err, &payloadErr)
	assert.Equal(t, "name", payloadErr.Field)
}

func TestBuildSMSTemplate_BodyPrecedence(t *testing.T) {
	tp := &models.Touchpoint{
		ID:      "tp-1",
		Type:    models.TouchpointTypeSMS,
		Name:    "Reminder",
		Content: map[string]any{"message": "content message"},
		Config:  map[string]any{"message": "config message", "body": "config body"},
	}

	template, err := buildSMSTemplate(tp)
	require.NoError(t, err)
	assert.Equal(t, "content message", template.Body)

	tp.Content = nil

	template, err = buildSMSTemplate(tp)
	require.NoError(t, err)
	assert.Equal(t, "config message", template.Body)
}

func TestBuildSMSTemplate_RequiresBody(t *testing.T) {
	tp := &models.Touchpoint{ID: "tp-1", Type: models.TouchpointTypeSMS, Name: "Reminder"}

	_, err := buildSMSTemplate(tp)
	require.Error(t, err)
	assert.True(t, IsInvalidPayload(err))
}

func TestStringField_IgnoresNonStringValues(t *testing.T) {
	tp := &models.Touchpoint{
		Content: map[string]any{"subject": 42},
		Config:  map[string]any{"subject": "typed subject"},
	}

	assert.Equal(t, "typed subject", stringField(tp, emailSubjectSources, "fallback"))
	assert.Equal(t, "fallback", stringField(&models.Touchpoint{}, emailSubjectSources, "fallback"))
}
