package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContent_Email(t *testing.T) {
	err := ValidateContent(TouchpointTypeEmail, map[string]any{
		"subject": "Welcome",
		"body":    "Hello there",
	})
	require.NoError(t, err)

	err = ValidateContent(TouchpointTypeEmail, map[string]any{
		"subject": 42,
	})
	assert.Error(t, err)
}

func TestValidateContent_UnknownFieldsAllowed(t *testing.T) {
	err := ValidateContent(TouchpointTypeEmail, map[string]any{
		"subject":       "Welcome",
		"legacy_layout": "two-column",
	})
	assert.NoError(t, err)
}

func TestValidateContent_Wait(t *testing.T) {
	err := ValidateContent(TouchpointTypeWait, map[string]any{
		"delay":      float64(2),
		"delay_unit": "days",
	})
	require.NoError(t, err)

	err = ValidateContent(TouchpointTypeWait, map[string]any{
		"delay_unit": "weeks",
	})
	assert.Error(t, err)
}

func TestValidateContent_TypesWithoutSchemaAcceptAnything(t *testing.T) {
	err := ValidateContent(TouchpointTypeNote, map[string]any{
		"anything": []any{"goes", 1, true},
	})
	assert.NoError(t, err)
}

func TestValidateContent_UnknownType(t *testing.T) {
	err := ValidateContent(TouchpointType("carrier_pigeon"), nil)
	assert.Error(t, err)
}

func TestValidateContent_NilContent(t *testing.T) {
	assert.NoError(t, ValidateContent(TouchpointTypeEmail, nil))
}
