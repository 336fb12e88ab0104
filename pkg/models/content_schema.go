package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Content payloads arrive from authoring tools as loose JSON. Each touchpoint
// type has a schema describing the fields the core understands; unknown fields
// are allowed so legacy payload shapes keep working.
var contentSchemas = map[TouchpointType]map[string]any{
	TouchpointTypeEmail: {
		"type": "object",
		"properties": map[string]any{
			"name":         map[string]any{"type": "string"},
			"subject":      map[string]any{"type": "string"},
			"preview_text": map[string]any{"type": "string"},
			"body":         map[string]any{"type": "string"},
			"html":         map[string]any{"type": "string"},
		},
	},
	TouchpointTypeSMS: {
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
			"message": map[string]any{"type": "string"},
		},
	},
	TouchpointTypeWait: {
		"type": "object",
		"properties": map[string]any{
			"delay":      map[string]any{"type": "number"},
			"delay_unit": map[string]any{"type": "string", "enum": []any{"minutes", "hours", "days"}},
		},
	},
	TouchpointTypeCondition: {
		"type": "object",
		"properties": map[string]any{
			"field":    map[string]any{"type": "string"},
			"operator": map[string]any{"type": "string"},
			"value":    map[string]any{},
		},
	},
}

var errUnknownTouchpointType = errors.New("unknown touchpoint type")

// ValidateContent checks a touchpoint content payload against the schema for
// its type. Types without a registered schema accept any object.
func ValidateContent(touchpointType TouchpointType, content map[string]any) error {
	if !ValidTouchpointType(touchpointType) {
		return fmt.Errorf("%w: %s", errUnknownTouchpointType, touchpointType)
	}

	schema, ok := contentSchemas[touchpointType]
	if !ok || content == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(content)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s content: %w", touchpointType, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid %s content: %s", touchpointType, strings.Join(details, "; "))
	}

	return nil
}
