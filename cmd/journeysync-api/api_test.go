package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence/file"
	"github.com/marketloop/journeysync/pkg/remote"
)

// stubRemote satisfies remote.API without a live platform.
type stubRemote struct {
	created int
}

func (s *stubRemote) CreateEmailTemplate(context.Context, string, remote.EmailTemplate) (string, error) {
	s.created++

	return fmt.Sprintf("tmpl-%d", s.created), nil
}

func (s *stubRemote) UpdateEmailTemplate(context.Context, string, string, remote.EmailTemplate) error {
	return nil
}

func (s *stubRemote) CreateSMSTemplate(context.Context, string, remote.SMSTemplate) (string, error) {
	s.created++

	return fmt.Sprintf("tmpl-%d", s.created), nil
}

func (s *stubRemote) UpdateSMSTemplate(context.Context, string, string, remote.SMSTemplate) error {
	return nil
}

func (s *stubRemote) TemplateMeta(context.Context, string, string) (*remote.TemplateMeta, error) {
	return nil, &remote.APIError{StatusCode: 404, Err: remote.ErrTemplateNotFound}
}

func (s *stubRemote) WorkflowStepCount(context.Context, string, string) (int, error) {
	return 0, nil
}

func setupTestApp(tempDir string) *fiber.App {
	persistence := file.NewPersistence(tempDir)

	api := NewAPI(
		slog.Default(),
		persistence,
		nil,
		&stubRemote{},
		persistence.LedgerRepository(),
		2,
	)

	return api.App()
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body io.Reader

	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return req
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Logf("Failed to close response body: %v", err)
	}
}

func createTestJourney(t *testing.T, app *fiber.App) *models.Journey {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys", map[string]any{
		"client_id": "client-1",
		"name":      "Onboarding Sequence",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	journey := &models.Journey{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(journey))

	return journey
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "JourneySync API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_GetJourneys_Empty(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodGet, "/journeys", nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Journeys   []models.Journey `json:"journeys"`
		TotalCount int64            `json:"total_count"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Empty(t, payload.Journeys)
	assert.Zero(t, payload.TotalCount)
}

func TestAPI_CreateAndGetJourney(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	assert.Equal(t, int64(1), journey.Version)
	assert.Equal(t, models.JourneyStatusDraft, journey.Status)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/journeys/"+journey.ID, nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	fetched := &models.Journey{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(fetched))
	assert.Equal(t, journey.ID, fetched.ID)
	assert.Equal(t, "Onboarding Sequence", fetched.Name)
}

func TestAPI_CreateJourney_ValidationFailure(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys", map[string]any{
		"name": "No Client",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetJourney_NotFound(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodGet, "/journeys/non-existent", nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UpdateJourney_VersionedUpdate(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPatch, "/journeys/"+journey.ID, map[string]any{
		"submitted_version": journey.Version,
		"name":              "Onboarding Sequence v2",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	updated := &models.Journey{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(updated))
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "Onboarding Sequence v2", updated.Name)
}

func TestAPI_UpdateJourney_StaleVersionGets409WithCurrentState(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	first, err := app.Test(jsonRequest(http.MethodPatch, "/journeys/"+journey.ID, map[string]any{
		"submitted_version": journey.Version,
		"name":              "First Editor",
	}))
	require.NoError(t, err)
	closeBody(t, first)
	require.Equal(t, http.StatusOK, first.StatusCode)

	resp, err := app.Test(jsonRequest(http.MethodPatch, "/journeys/"+journey.ID, map[string]any{
		"submitted_version": journey.Version,
		"name":              "Second Editor",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var payload struct {
		Error            string          `json:"error"`
		JourneyID        string          `json:"journey_id"`
		SubmittedVersion int64           `json:"submitted_version"`
		CurrentVersion   int64           `json:"current_version"`
		Current          *models.Journey `json:"current"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "version_conflict", payload.Error)
	assert.Equal(t, journey.ID, payload.JourneyID)
	assert.Equal(t, int64(1), payload.SubmittedVersion)
	assert.Equal(t, int64(2), payload.CurrentVersion)
	require.NotNil(t, payload.Current)
	assert.Equal(t, "First Editor", payload.Current.Name)
}

func TestAPI_TouchpointLifecycle(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys/"+journey.ID+"/touchpoints", map[string]any{
		"type":    "email",
		"name":    "Welcome Email",
		"content": map[string]any{"subject": "Hi", "body": "Welcome"},
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := &models.Touchpoint{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(created))
	assert.Equal(t, 0, created.OrderIndex)

	patchResp, err := app.Test(jsonRequest(http.MethodPatch,
		"/journeys/"+journey.ID+"/touchpoints/"+created.ID, map[string]any{
			"name": "Intro Email",
		}))
	require.NoError(t, err)

	defer closeBody(t, patchResp)

	assert.Equal(t, http.StatusOK, patchResp.StatusCode)

	statusResp, err := app.Test(jsonRequest(http.MethodGet,
		"/journeys/"+journey.ID+"/touchpoints/"+created.ID+"/publish-status", nil))
	require.NoError(t, err)

	defer closeBody(t, statusResp)

	assert.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status struct {
		Status string `json:"status"`
	}

	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "draft", status.Status)

	deleteResp, err := app.Test(jsonRequest(http.MethodDelete,
		"/journeys/"+journey.ID+"/touchpoints/"+created.ID, nil))
	require.NoError(t, err)

	defer closeBody(t, deleteResp)

	assert.Equal(t, http.StatusNoContent, deleteResp.StatusCode)
}

func TestAPI_ReorderTouchpoints(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	var ids []string

	for _, name := range []string{"First", "Second"} {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys/"+journey.ID+"/touchpoints", map[string]any{
			"type": "note",
			"name": name,
		}))
		require.NoError(t, err)

		created := &models.Touchpoint{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(created))
		closeBody(t, resp)

		ids = append(ids, created.ID)
	}

	resp, err := app.Test(jsonRequest(http.MethodPut, "/journeys/"+journey.ID+"/touchpoints/order", map[string]any{
		"ordered_ids": []string{ids[1], ids[0]},
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Touchpoints []models.Touchpoint `json:"touchpoints"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Touchpoints, 2)
	assert.Equal(t, "Second", payload.Touchpoints[0].Name)
	assert.Equal(t, "First", payload.Touchpoints[1].Name)
}

func TestAPI_ReorderTouchpoints_RejectsPartialList(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys/"+journey.ID+"/touchpoints", map[string]any{
		"type": "note",
		"name": "Only One",
	}))
	require.NoError(t, err)
	closeBody(t, resp)

	reorderResp, err := app.Test(jsonRequest(http.MethodPut, "/journeys/"+journey.ID+"/touchpoints/order", map[string]any{
		"ordered_ids": []string{"unknown-id"},
	}))
	require.NoError(t, err)

	defer closeBody(t, reorderResp)

	assert.Equal(t, http.StatusBadRequest, reorderResp.StatusCode)
}

func TestAPI_VersionSnapshots(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/journeys/"+journey.ID+"/versions", map[string]any{
		"change_log": "reviewed by client",
		"created_by": "tester",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	snapshot := &models.JourneyVersionSnapshot{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(snapshot))
	assert.Equal(t, int64(2), snapshot.Version)

	listResp, err := app.Test(jsonRequest(http.MethodGet, "/journeys/"+journey.ID+"/versions", nil))
	require.NoError(t, err)

	defer closeBody(t, listResp)

	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var payload struct {
		Versions []models.JourneyVersionSnapshot `json:"versions"`
	}

	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&payload))
	assert.Len(t, payload.Versions, 2)
}

func TestAPI_TriggerSyncRun(t *testing.T) {
	app := setupTestApp(t.TempDir())
	journey := createTestJourney(t, app)

	// Move the journey into a syncable state.
	resp, err := app.Test(jsonRequest(http.MethodPatch, "/journeys/"+journey.ID, map[string]any{
		"submitted_version": journey.Version,
		"status":            "approved",
	}))
	require.NoError(t, err)
	closeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tpResp, err := app.Test(jsonRequest(http.MethodPost, "/journeys/"+journey.ID+"/touchpoints", map[string]any{
		"type":    "email",
		"name":    "Welcome Email",
		"content": map[string]any{"subject": "Hi", "body": "Welcome"},
	}))
	require.NoError(t, err)
	closeBody(t, tpResp)

	runResp, err := app.Test(jsonRequest(http.MethodPost, "/sync/runs", map[string]any{
		"journey_id": journey.ID,
	}))
	require.NoError(t, err)

	defer closeBody(t, runResp)

	require.Equal(t, http.StatusCreated, runResp.StatusCode)

	run := &models.SyncRun{}
	require.NoError(t, json.NewDecoder(runResp.Body).Decode(run))
	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Synced)

	getResp, err := app.Test(jsonRequest(http.MethodGet, "/sync/runs/"+run.ID, nil))
	require.NoError(t, err)

	defer closeBody(t, getResp)

	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestAPI_TriggerSyncRun_InvalidResolution(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodPost, "/sync/runs", map[string]any{
		"resolution": "rebase",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Conflicts_EmptyList(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodGet, "/conflicts", nil))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Conflicts []models.ConflictRecord `json:"conflicts"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Empty(t, payload.Conflicts)
}

func TestAPI_ResolveConflict_NotFound(t *testing.T) {
	app := setupTestApp(t.TempDir())

	resp, err := app.Test(jsonRequest(http.MethodPost, "/conflicts/missing/resolve", map[string]any{
		"resolution": "skip",
	}))
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CORS_Headers(t *testing.T) {
	app := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodOptions, "/journeys", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
