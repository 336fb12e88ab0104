package remote

import "time"

// EmailTemplate is the shape the platform expects for an email template.
type EmailTemplate struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SMSTemplate is the shape the platform expects for an SMS template.
type SMSTemplate struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// TemplateMeta is the platform's metadata view of a stored template. The
// platform does not always support reading created content back; Fingerprint
// is empty in that case and verification falls back to timestamps.
type TemplateMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type createTemplateResponse struct {
	ID string `json:"id"`
}

type workflowResponse struct {
	ID        string `json:"id"`
	StepCount int    `json:"stepCount"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
