package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delivery "sparkreel-server/internal/delivery/http"
	"sparkreel-server/internal/domain"
	"sparkreel-server/internal/generator"
	"sparkreel-server/internal/repository"
	"sparkreel-server/internal/service"
	"sparkreel-server/pkg/taskmanager"
)

func newTestServer(t *testing.T) (*httptest.Server, *domain.Project) {
	t.Helper()
	project := repository.SeedDemoProject()
	svc := service.NewWizardService(
		repository.NewMemorySessionRepository(),
		repository.NewMemoryProjectRepository(project),
		generator.NewStubSet(domain.ModelWan25, 0),
		taskmanager.New(10),
		domain.VideoSettings{Model: domain.ModelWan25, Resolution: domain.Resolution1080p, Duration: domain.Duration5s, Count: 1},
	)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	delivery.New(svc).RegisterRoutes(api)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, project
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestWizardLifecycleOverHTTP(t *testing.T) {
	server, project := newTestServer(t)

	// Пул ассетов проекта доступен
	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/projects/%s/assets", server.URL, project.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assets domain.AssetSelection
	decode(t, resp, &assets)
	assert.NotEmpty(t, assets.Characters)

	// Открытие сессии
	resp = doJSON(t, http.MethodPost, server.URL+"/api/wizard", map[string]interface{}{"project_id": project.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var state domain.WizardState
	decode(t, resp, &state)
	assert.Equal(t, domain.StepScript, state.Step)

	sessionURL := fmt.Sprintf("%s/api/wizard/%s", server.URL, state.SessionID)

	// Сценарий и переход на второй шаг
	resp = doJSON(t, http.MethodPut, sessionURL+"/script", domain.ScriptData{
		Title:    "Sword Saint",
		MaxShots: 10,
		Content:  "Dawn over the sect.\nLi Xuan trains alone.",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, sessionURL+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Переход на раскадровку запускает генерацию
	resp = doJSON(t, http.MethodPost, sessionURL+"/advance", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var advance struct {
		TaskID uuid.UUID `json:"task_id"`
	}
	decode(t, resp, &advance)
	assert.NotEqual(t, uuid.Nil, advance.TaskID)

	// Статус задачи доступен
	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/tasks/%s", server.URL, advance.TaskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Отмена сессии
	resp = doJSON(t, http.MethodDelete, sessionURL, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, sessionURL, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestErrorStatusMapping(t *testing.T) {
	server, project := newTestServer(t)

	t.Run("Unknown session is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/wizard/%s", server.URL, uuid.New()), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("Malformed session id is 400", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, server.URL+"/api/wizard/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("Missing precondition is 400", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/wizard", map[string]interface{}{"project_id": project.ID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var state domain.WizardState
		decode(t, resp, &state)

		// Переход вперед с пустым сценарием
		resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/wizard/%s/advance", server.URL, state.SessionID), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("Unknown project is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/wizard", map[string]interface{}{"project_id": uuid.New()})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestOptimizePromptEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/optimize-prompt", map[string]string{"text": "a duel at dawn"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "a duel at dawn", out["prompt"])
}
