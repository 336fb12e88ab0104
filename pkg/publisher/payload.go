package publisher

import (
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/remote"
)

// stringField resolves one template field from a touchpoint's loosely typed
// payload by an explicit ordered precedence: each (source, key) pair is
// tried in order and the first non-empty string wins; fallback is returned
// when none match. The precedence for every field is declared once, next to
// the payload builder that uses it, so extraction stays reproducible.
func stringField(tp *models.Touchpoint, sources []fieldSource, fallback string) string {
	for _, src := range sources {
		var payload map[string]any

		switch src.section {
		case sectionContent:
			payload = tp.Content
		case sectionConfig:
			payload = tp.Config
		}

		if payload == nil {
			continue
		}

		if value, ok := payload[src.key].(string); ok && value != "" {
			return value
		}
	}

	return fallback
}

type payloadSection int

const (
	sectionContent payloadSection = iota
	sectionConfig
)

type fieldSource struct {
	section payloadSection
	key     string
}

var (
	emailSubjectSources = []fieldSource{
		{sectionContent, "subject"},
		{sectionConfig, "subject"},
	}
	emailBodySources = []fieldSource{
		{sectionContent, "body"},
		{sectionConfig, "content"},
		{sectionContent, "html"},
	}
	smsBodySources = []fieldSource{
		{sectionContent, "body"},
		{sectionContent, "message"},
		{sectionConfig, "message"},
		{sectionConfig, "body"},
	}
)

// buildEmailTemplate maps a touchpoint onto the platform's email template
// shape. The template name is mandatory; subject and body default to empty,
// which the platform accepts for drafts.
func buildEmailTemplate(tp *models.Touchpoint) (remote.EmailTemplate, error) {
	if tp.Name == "" {
		return remote.EmailTemplate{}, &PayloadError{
			TouchpointID: tp.ID,
			Field:        "name",
			Message:      "email templates require a name",
		}
	}

	return remote.EmailTemplate{
		Name:    tp.Name,
		Subject: stringField(tp, emailSubjectSources, ""),
		Body:    stringField(tp, emailBodySources, ""),
	}, nil
}

// buildSMSTemplate maps a touchpoint onto the platform's SMS template shape.
// An SMS with no resolvable body is rejected before any remote call.
func buildSMSTemplate(tp *models.Touchpoint) (remote.SMSTemplate, error) {
	body := stringField(tp, smsBodySources, "")
	if body == "" {
		return remote.SMSTemplate{}, &PayloadError{
			TouchpointID: tp.ID,
			Field:        "body",
			Message:      "SMS templates require a non-empty body",
		}
	}

	return remote.SMSTemplate{
		Name: tp.Name,
		Body: body,
	}, nil
}
