package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// API is the surface the publisher and conflict detector need from the
// platform. *Client implements it; tests swap in fakes.
type API interface {
	CreateEmailTemplate(ctx context.Context, locationID string, template EmailTemplate) (string, error)
	UpdateEmailTemplate(ctx context.Context, locationID, templateID string, template EmailTemplate) error
	CreateSMSTemplate(ctx context.Context, locationID string, template SMSTemplate) (string, error)
	UpdateSMSTemplate(ctx context.Context, locationID, templateID string, template SMSTemplate) error
	TemplateMeta(ctx context.Context, locationID, templateID string) (*TemplateMeta, error)
	WorkflowStepCount(ctx context.Context, locationID, workflowID string) (int, error)
}

// Config holds the connection settings for the platform API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the platform over authenticated HTTP. It never retries;
// retry policy belongs to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a platform API client.
func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateEmailTemplate creates a named email template and returns its remote id.
func (c *Client) CreateEmailTemplate(ctx context.Context, locationID string, template EmailTemplate) (string, error) {
	return c.createTemplate(ctx, fmt.Sprintf("/locations/%s/templates/email", locationID), template)
}

// UpdateEmailTemplate overwrites an existing email template.
func (c *Client) UpdateEmailTemplate(ctx context.Context, locationID, templateID string, template EmailTemplate) error {
	path := fmt.Sprintf("/locations/%s/templates/email/%s", locationID, templateID)

	return c.do(ctx, http.MethodPut, path, template, nil)
}

// CreateSMSTemplate creates a named SMS template and returns its remote id.
func (c *Client) CreateSMSTemplate(ctx context.Context, locationID string, template SMSTemplate) (string, error) {
	return c.createTemplate(ctx, fmt.Sprintf("/locations/%s/templates/sms", locationID), template)
}

// UpdateSMSTemplate overwrites an existing SMS template.
func (c *Client) UpdateSMSTemplate(ctx context.Context, locationID, templateID string, template SMSTemplate) error {
	path := fmt.Sprintf("/locations/%s/templates/sms/%s", locationID, templateID)

	return c.do(ctx, http.MethodPut, path, template, nil)
}

// TemplateMeta fetches the platform's metadata for a stored template.
func (c *Client) TemplateMeta(ctx context.Context, locationID, templateID string) (*TemplateMeta, error) {
	meta := &TemplateMeta{}

	path := fmt.Sprintf("/locations/%s/templates/%s", locationID, templateID)
	if err := c.do(ctx, http.MethodGet, path, nil, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

// WorkflowStepCount returns how many steps the remote copy of a workflow has.
func (c *Client) WorkflowStepCount(ctx context.Context, locationID, workflowID string) (int, error) {
	workflow := &workflowResponse{}

	path := fmt.Sprintf("/locations/%s/workflows/%s", locationID, workflowID)
	if err := c.do(ctx, http.MethodGet, path, nil, workflow); err != nil {
		return 0, err
	}

	return workflow.StepCount, nil
}

func (c *Client) createTemplate(ctx context.Context, path string, payload any) (string, error) {
	created := &createTemplateResponse{}

	if err := c.do(ctx, http.MethodPost, path, payload, created); err != nil {
		return "", err
	}

	if created.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "create response missing template id"}
	}

	return created.ID, nil
}

// do performs one authenticated request, classifying non-2xx responses into
// the remote failure taxonomy.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request payload: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return classifyStatus(resp.StatusCode, extractErrorMessage(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}

// extractErrorMessage pulls a human-readable message out of an error
// response, falling back to the raw body.
func extractErrorMessage(body []byte) string {
	parsed := errorResponse{}

	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}

		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return strings.TrimSpace(string(body))
}
