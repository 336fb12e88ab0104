package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/journeysync/pkg/models"
)

func TestContentHash_Deterministic(t *testing.T) {
	tp := &models.Touchpoint{
		ID:   "tp-1",
		Type: models.TouchpointTypeEmail,
		Name: "Welcome Email",
		Content: map[string]any{
			"subject": "Hi",
			"body":    "Hello there",
		},
	}

	first, err := ContentHash(tp)
	require.NoError(t, err)

	second, err := ContentHash(tp)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestContentHash_IgnoresVolatileFields(t *testing.T) {
	base := &models.Touchpoint{
		ID:      "tp-1",
		Type:    models.TouchpointTypeEmail,
		Name:    "Welcome Email",
		Content: map[string]any{"subject": "Hi"},
	}

	baseHash, err := ContentHash(base)
	require.NoError(t, err)

	republished := &models.Touchpoint{
		ID:               "tp-other",
		JourneyID:        "j-9",
		Type:             models.TouchpointTypeEmail,
		Name:             "Welcome Email",
		Content:          map[string]any{"subject": "Hi"},
		RemoteTemplateID: "tmpl-1",
		Status:           models.TouchpointStatusPublished,
		UpdatedAt:        time.Now().UTC(),
	}

	otherHash, err := ContentHash(republished)
	require.NoError(t, err)

	assert.Equal(t, baseHash, otherHash)
}

func TestContentHash_ChangesWithContent(t *testing.T) {
	tp := &models.Touchpoint{
		Type:    models.TouchpointTypeSMS,
		Name:    "Reminder",
		Content: map[string]any{"body": "See you soon"},
	}

	before, err := ContentHash(tp)
	require.NoError(t, err)

	tp.Content["body"] = "See you tomorrow"

	after, err := ContentHash(tp)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestContentHash_ChangesWithName(t *testing.T) {
	tp := &models.Touchpoint{Type: models.TouchpointTypeSMS, Name: "Reminder"}

	before, err := ContentHash(tp)
	require.NoError(t, err)

	tp.Name = "Reminder v2"

	after, err := ContentHash(tp)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}
