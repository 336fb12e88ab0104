package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVersion(t *testing.T) {
	assert.Nil(t, CheckVersion("j-1", 3, 3))

	c := CheckVersion("j-1", 2, 5)
	require.NotNil(t, c)
	assert.Equal(t, KindVersionMismatch, c.Kind)
	assert.Equal(t, "5", c.Local)
	assert.Equal(t, "2", c.Remote)
	assert.Equal(t, "j-1", c.JourneyID)
}

func TestParseResolution(t *testing.T) {
	for _, valid := range []string{"skip", "overwrite", "merge", "manual"} {
		parsed, err := ParseResolution(valid)
		require.NoError(t, err)
		assert.Equal(t, Resolution(valid), parsed)
	}

	_, err := ParseResolution("rebase")
	assert.Error(t, err)

	_, err = ParseResolution("")
	assert.Error(t, err)
}

func TestValidateResolution_MergeRejectedForStructuralConflicts(t *testing.T) {
	conflicts := []Conflict{
		{Kind: KindExternalModification, TouchpointID: "tp-1"},
		{Kind: KindStepCountMismatch, JourneyID: "j-1"},
	}

	err := ValidateResolution(ResolutionMerge, conflicts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMergeNotAllowed)

	// Every other policy is acceptable regardless of conflict shape.
	assert.NoError(t, ValidateResolution(ResolutionSkip, conflicts))
	assert.NoError(t, ValidateResolution(ResolutionOverwrite, conflicts))
	assert.NoError(t, ValidateResolution(ResolutionManual, conflicts))
}

func TestValidateResolution_MergeAllowedForContentConflicts(t *testing.T) {
	conflicts := []Conflict{
		{Kind: KindExternalModification, TouchpointID: "tp-1"},
	}

	assert.NoError(t, ValidateResolution(ResolutionMerge, conflicts))
}

func TestConflict_String(t *testing.T) {
	c := Conflict{
		Kind:         KindExternalModification,
		JourneyID:    "j-1",
		TouchpointID: "tp-1",
		Local:        "aaa",
		Remote:       "bbb",
	}

	assert.Contains(t, c.String(), "tp-1")
	assert.Contains(t, c.String(), "external_modification")
}
