package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"sparkreel-server/internal/domain"
	"sparkreel-server/internal/service"
)

// Handler представляет HTTP обработчик мастера.
type Handler struct {
	wizard *service.WizardService
}

// New создает новый экземпляр обработчика.
func New(wizard *service.WizardService) *Handler {
	return &Handler{wizard: wizard}
}

// RegisterRoutes регистрирует маршруты API (относительно /api).
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/assets", h.ListProjectAssets).Methods("GET")

	// Жизненный цикл мастера
	router.HandleFunc("/wizard", h.StartWizard).Methods("POST")
	router.HandleFunc("/wizard/{session}", h.GetState).Methods("GET")
	router.HandleFunc("/wizard/{session}", h.CancelWizard).Methods("DELETE")
	router.HandleFunc("/wizard/{session}/advance", h.Advance).Methods("POST")
	router.HandleFunc("/wizard/{session}/retreat", h.Retreat).Methods("POST")
	router.HandleFunc("/wizard/{session}/finish", h.Finish).Methods("POST")

	// Шаг 1: сценарий
	router.HandleFunc("/wizard/{session}/script", h.SetScript).Methods("PUT")

	// Шаг 2: выбор ассетов
	router.HandleFunc("/wizard/{session}/assets/toggle", h.ToggleAssetSelection).Methods("POST")

	// Шаг 3: раскадровка
	router.HandleFunc("/wizard/{session}/storyboard/generate", h.GenerateStoryboards).Methods("POST")
	router.HandleFunc("/wizard/{session}/storyboard/shots", h.InsertShot).Methods("POST")
	router.HandleFunc("/wizard/{session}/storyboard/shots/{shot}", h.DeleteShot).Methods("DELETE")
	router.HandleFunc("/wizard/{session}/storyboard/shots/{shot}/prompt", h.EditShotPrompt).Methods("PUT")
	router.HandleFunc("/wizard/{session}/storyboard/shots/{shot}/script", h.EditShotScript).Methods("PUT")
	router.HandleFunc("/wizard/{session}/storyboard/shots/{shot}/assets/toggle", h.ToggleShotAsset).Methods("POST")

	// Шаг 4: fusion-изображения
	router.HandleFunc("/wizard/{session}/fusion/generate", h.GenerateFusion).Methods("POST")
	router.HandleFunc("/wizard/{session}/fusion/{image}", h.UpdateFusionItem).Methods("PATCH")
	router.HandleFunc("/wizard/{session}/fusion/{image}", h.DeleteFusionItem).Methods("DELETE")
	router.HandleFunc("/wizard/{session}/fusion/{image}/assets/toggle", h.ToggleFusionAsset).Methods("POST")
	router.HandleFunc("/wizard/{session}/video-settings", h.SetGlobalVideoSettings).Methods("PUT")

	// Шаг 5: монтаж
	router.HandleFunc("/wizard/{session}/videos/generate", h.GenerateVideos).Methods("POST")
	router.HandleFunc("/wizard/{session}/fusion/{image}/videos/regenerate", h.RegenerateVideo).Methods("POST")
	router.HandleFunc("/wizard/{session}/fusion/{image}/videos/{video}/confirm", h.ConfirmVideo).Methods("POST")
	router.HandleFunc("/wizard/{session}/videos/{video}/dubbing", h.SetDubbing).Methods("PUT")

	// Вспомогательные маршруты
	router.HandleFunc("/optimize-prompt", h.OptimizePrompt).Methods("POST")
	router.HandleFunc("/tasks/{id}", h.GetTaskStatus).Methods("GET")
}

// ListProjectAssets возвращает пул ассетов проекта.
func (h *Handler) ListProjectAssets(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат ID проекта")
		return
	}

	assets, err := h.wizard.ListProjectAssets(r.Context(), projectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, assets)
}

// StartWizard открывает новую сессию мастера.
func (h *Handler) StartWizard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID uuid.UUID `json:"project_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	state, err := h.wizard.StartWizard(r.Context(), req.ProjectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, state)
}

// GetState возвращает текущее состояние сессии.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.wizard.GetState(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, state)
}

// CancelWizard отменяет сессию мастера.
func (h *Handler) CancelWizard(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.wizard.Cancel(r.Context(), sessionID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Advance переводит мастер на следующий шаг. Если запущена генерация,
// возвращается 202 с ID задачи.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	state, taskID, err := h.wizard.Advance(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if taskID != uuid.Nil {
		RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
			"state":   state,
			"task_id": taskID,
		})
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"state": state})
}

// Retreat возвращает мастер на предыдущий шаг.
func (h *Handler) Retreat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	state, err := h.wizard.Retreat(r.Context(), sessionID, domain.WizardStep(req.Step))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"state": state})
}

// Finish завершает мастер и возвращает созданные сниппеты.
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	snippets, err := h.wizard.Finish(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"snippets": snippets})
}

// SetScript обновляет сценарий на первом шаге.
func (h *Handler) SetScript(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	var script domain.ScriptData
	if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.SetScript(r.Context(), sessionID, script); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleAssetRequest struct {
	Kind    domain.AssetKind `json:"kind"`
	AssetID uuid.UUID        `json:"asset_id"`
}

// ToggleAssetSelection переключает выбор ассета на втором шаге.
func (h *Handler) ToggleAssetSelection(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	var req toggleAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	selected, err := h.wizard.ToggleAssetSelection(r.Context(), sessionID, req.Kind, req.AssetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"selected": selected})
}

// GenerateStoryboards запускает регенерацию раскадровки.
func (h *Handler) GenerateStoryboards(w http.ResponseWriter, r *http.Request) {
	h.startGeneration(w, r, h.wizard.GenerateStoryboards)
}

// GenerateFusion запускает генерацию fusion-изображений.
func (h *Handler) GenerateFusion(w http.ResponseWriter, r *http.Request) {
	h.startGeneration(w, r, h.wizard.GenerateFusion)
}

// GenerateVideos запускает пакетную генерацию видео.
func (h *Handler) GenerateVideos(w http.ResponseWriter, r *http.Request) {
	h.startGeneration(w, r, h.wizard.GenerateVideos)
}

// InsertShot вставляет пустой кадр после указанной позиции.
func (h *Handler) InsertShot(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		AfterIndex int `json:"after_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	shot, err := h.wizard.InsertShotAfter(r.Context(), sessionID, req.AfterIndex)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, shot)
}

// DeleteShot удаляет кадр раскадровки.
func (h *Handler) DeleteShot(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	shotID, ok := pathID(w, r, "shot")
	if !ok {
		return
	}

	if err := h.wizard.DeleteShot(r.Context(), sessionID, shotID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditShotPrompt обновляет промпт кадра. Флаг downstream_stale в ответе
// сообщает, что производные fusion-изображения не были обновлены.
func (h *Handler) EditShotPrompt(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	shotID, ok := pathID(w, r, "shot")
	if !ok {
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	stale, err := h.wizard.EditShotPrompt(r.Context(), sessionID, shotID, req.Prompt)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"downstream_stale": stale})
}

// EditShotScript обновляет текст сценария кадра.
func (h *Handler) EditShotScript(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	shotID, ok := pathID(w, r, "shot")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.UpdateShotScript(r.Context(), sessionID, shotID, req.Content); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleShotAsset переключает привязку ассета к кадру.
func (h *Handler) ToggleShotAsset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	shotID, ok := pathID(w, r, "shot")
	if !ok {
		return
	}

	var req toggleAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.ToggleShotAsset(r.Context(), sessionID, shotID, req.Kind, req.AssetID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateFusionItem применяет частичное обновление к изображению.
func (h *Handler) UpdateFusionItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image")
	if !ok {
		return
	}

	var patch service.FusionItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.UpdateFusionItem(r.Context(), sessionID, imageID, patch); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFusionItem удаляет изображение.
func (h *Handler) DeleteFusionItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image")
	if !ok {
		return
	}

	if err := h.wizard.DeleteFusionItem(r.Context(), sessionID, imageID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFusionAsset переключает привязку ассета к изображению.
func (h *Handler) ToggleFusionAsset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image")
	if !ok {
		return
	}

	var req toggleAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.ToggleFusionAsset(r.Context(), sessionID, imageID, req.Kind, req.AssetID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetGlobalVideoSettings применяет частичное обновление глобальных настроек.
func (h *Handler) SetGlobalVideoSettings(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	var patch domain.VideoSettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.SetGlobalVideoSettings(r.Context(), sessionID, patch); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateVideo запускает повторную генерацию для одного изображения.
func (h *Handler) RegenerateVideo(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image")
	if !ok {
		return
	}

	var settings domain.RegenerateSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	taskID, err := h.wizard.RegenerateVideo(r.Context(), sessionID, imageID, settings)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{"task_id": taskID})
}

// ConfirmVideo выбирает кандидата как подтвержденное видео изображения.
func (h *Handler) ConfirmVideo(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image")
	if !ok {
		return
	}
	videoID, ok := pathID(w, r, "video")
	if !ok {
		return
	}

	if err := h.wizard.ConfirmVideo(r.Context(), sessionID, imageID, videoID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDubbing прикрепляет озвучку к кандидату видео.
func (h *Handler) SetDubbing(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}
	videoID, ok := pathID(w, r, "video")
	if !ok {
		return
	}

	var dubbing domain.Dubbing
	if err := json.NewDecoder(r.Body).Decode(&dubbing); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	if err := h.wizard.SetDubbing(r.Context(), sessionID, videoID, dubbing); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OptimizePrompt улучшает пользовательский промпт.
func (h *Handler) OptimizePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат запроса: %v", err))
		return
	}

	optimized := h.wizard.OptimizePrompt(r.Context(), req.Text)
	RespondWithJSON(w, http.StatusOK, map[string]string{"prompt": optimized})
}

// GetTaskStatus возвращает статус задачи генерации.
func (h *Handler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат ID задачи")
		return
	}

	task, err := h.wizard.GetTaskStatus(r.Context(), taskID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, task)
}

// startGeneration запускает задачу генерации и отвечает 202 с её ID.
func (h *Handler) startGeneration(w http.ResponseWriter, r *http.Request, start func(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)) {
	sessionID, ok := sessionIDFromRequest(w, r)
	if !ok {
		return
	}

	taskID, err := start(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{"task_id": taskID})
}

// sessionIDFromRequest извлекает ID сессии из пути запроса.
func sessionIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(mux.Vars(r)["session"])
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат ID сессии")
		return uuid.Nil, false
	}
	return sessionID, true
}

// pathID извлекает UUID из именованного сегмента пути.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("неверный формат ID %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// respondWithServiceError отображает ошибку сервиса на HTTP-статус.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrGenerationInProgress):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrMissingPrecondition),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidReference):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGenerationFailed):
		RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// RespondWithError отправляет ошибку в формате JSON.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithJSON отправляет ответ в формате JSON.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
