package remote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, slog.Default())
}

func TestClient_SendsAuthAndContentHeaders(t *testing.T) {
	var gotAuth, gotContentType string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "tmpl-1"})
	})

	_, err := client.CreateEmailTemplate(t.Context(), "loc-1", EmailTemplate{Name: "Welcome"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_CreateEmailTemplate(t *testing.T) {
	var gotPath string
	var gotPayload EmailTemplate

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "tmpl-42"})
	})

	id, err := client.CreateEmailTemplate(t.Context(), "loc-1", EmailTemplate{
		Name:    "Welcome",
		Subject: "Hi",
		Body:    "Welcome aboard",
	})
	require.NoError(t, err)

	assert.Equal(t, "tmpl-42", id)
	assert.Equal(t, "/locations/loc-1/templates/email", gotPath)
	assert.Equal(t, "Hi", gotPayload.Subject)
}

func TestClient_CreateRejectsResponseWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := client.CreateSMSTemplate(t.Context(), "loc-1", SMSTemplate{Name: "SMS", Body: "hi"})
	require.Error(t, err)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "missing template id")
}

func TestClient_UpdateEmailTemplate(t *testing.T) {
	var gotMethod, gotPath string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateEmailTemplate(t.Context(), "loc-1", "tmpl-1", EmailTemplate{Name: "Welcome"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/locations/loc-1/templates/email/tmpl-1", gotPath)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		target    error
		fatal     bool
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, target: ErrUnauthorized, fatal: true},
		{name: "forbidden", status: http.StatusForbidden, target: ErrForbidden, fatal: true},
		{name: "rate limited", status: http.StatusTooManyRequests, target: ErrRateLimited, retryable: true},
		{name: "not found", status: http.StatusNotFound, target: ErrTemplateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "nope"})
			})

			_, err := client.TemplateMeta(t.Context(), "loc-1", "tmpl-1")
			require.Error(t, err)

			assert.True(t, errors.Is(err, tt.target))
			assert.Equal(t, tt.fatal, IsFatal(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))

			apiErr := &APIError{}
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestClient_ServerErrorKeepsRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	err := client.UpdateSMSTemplate(t.Context(), "loc-1", "tmpl-1", SMSTemplate{Name: "SMS", Body: "hi"})
	require.Error(t, err)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.False(t, IsFatal(err))
	assert.False(t, IsRetryable(err))
}

func TestClient_TemplateMeta(t *testing.T) {
	updatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/loc-1/templates/tmpl-1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(TemplateMeta{
			ID:          "tmpl-1",
			Name:        "Welcome",
			Kind:        "email",
			Fingerprint: "abc123",
			UpdatedAt:   updatedAt,
		})
	})

	meta, err := client.TemplateMeta(t.Context(), "loc-1", "tmpl-1")
	require.NoError(t, err)

	assert.Equal(t, "tmpl-1", meta.ID)
	assert.Equal(t, "abc123", meta.Fingerprint)
	assert.True(t, meta.UpdatedAt.Equal(updatedAt))
}

func TestClient_WorkflowStepCount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/loc-1/workflows/wf-1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "wf-1", "stepCount": 7})
	})

	count, err := client.WorkflowStepCount(t.Context(), "loc-1", "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
