package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sparkreel-server/internal/domain"
	"sparkreel-server/internal/generator"
	"sparkreel-server/internal/repository"
	"sparkreel-server/pkg/taskmanager"
)

// WizardService реализует мастер превращения сценария в видео: пять шагов,
// строго линейное движение вперед, свободное назад, генерация на каждом этапе.
// Все операции работают через атомарный Update хранилища сессий, поэтому
// состояние мастера никогда не наблюдается в полуизмененном виде.
type WizardService struct {
	sessions repository.SessionRepository
	projects repository.ProjectRepository
	gens     generator.Set
	tasks    *taskmanager.Manager
	defaults domain.VideoSettings
}

// NewWizardService создает сервис мастера.
func NewWizardService(
	sessions repository.SessionRepository,
	projects repository.ProjectRepository,
	gens generator.Set,
	tasks *taskmanager.Manager,
	defaults domain.VideoSettings,
) *WizardService {
	return &WizardService{
		sessions: sessions,
		projects: projects,
		gens:     gens,
		tasks:    tasks,
		defaults: defaults,
	}
}

// StartWizard открывает новую сессию мастера для проекта.
func (s *WizardService) StartWizard(ctx context.Context, projectID uuid.UUID) (*domain.WizardState, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	state := domain.NewWizardState(projectID, s.defaults)
	if err := s.sessions.Create(ctx, state); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("sessionID", state.SessionID.String()).
		Str("projectID", projectID.String()).
		Msg("Сессия мастера создана")
	return state.Clone(), nil
}

// ListProjectAssets возвращает пул ассетов проекта для второго шага мастера.
func (s *WizardService) ListProjectAssets(ctx context.Context, projectID uuid.UUID) (domain.AssetSelection, error) {
	return s.projects.ListAssets(ctx, projectID)
}

// GetState возвращает текущее состояние сессии.
func (s *WizardService) GetState(ctx context.Context, sessionID uuid.UUID) (*domain.WizardState, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SetScript обновляет сценарий. Допустимо только на первом шаге:
// после ухода со сценария он становится неизменяемым.
func (s *WizardService) SetScript(ctx context.Context, sessionID uuid.UUID, script domain.ScriptData) error {
	if err := script.Validate(); err != nil {
		return err
	}
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepScript {
			return fmt.Errorf("%w: script is editable only on step %s", domain.ErrInvalidTransition, domain.StepScript)
		}
		st.Script = script
		return nil
	})
}

// ToggleAssetSelection переключает выбор ассета из пула проекта на втором шаге.
// Возвращает true, если ассет выбран после операции.
func (s *WizardService) ToggleAssetSelection(ctx context.Context, sessionID uuid.UUID, kind domain.AssetKind, assetID uuid.UUID) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: unknown asset kind %q", domain.ErrInvalidInput, kind)
	}

	var selected bool
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepAssets {
			return fmt.Errorf("%w: asset selection is editable only on step %s", domain.ErrInvalidTransition, domain.StepAssets)
		}

		pool, err := s.projects.ListAssets(ctx, st.ProjectID)
		if err != nil {
			return err
		}

		switch kind {
		case domain.AssetKindCharacter:
			for _, c := range pool.Characters {
				if c.ID == assetID {
					selected = st.SelectedAssets.ToggleCharacter(c)
					return nil
				}
			}
		case domain.AssetKindScene:
			for _, sc := range pool.Scenes {
				if sc.ID == assetID {
					selected = st.SelectedAssets.ToggleScene(sc)
					return nil
				}
			}
		case domain.AssetKindProp:
			for _, p := range pool.Props {
				if p.ID == assetID {
					selected = st.SelectedAssets.ToggleProp(p)
					return nil
				}
			}
		}
		return fmt.Errorf("%w: %s %s is not in the project pool", domain.ErrInvalidReference, kind, assetID)
	})
	return selected, err
}

// Advance переводит мастер на следующий шаг. Если целевой этап еще не имеет
// данных, запускается его генерация; возвращаемый taskID отличен от uuid.Nil,
// когда задача была запущена. Движение вперед только на соседний шаг.
func (s *WizardService) Advance(ctx context.Context, sessionID uuid.UUID) (*domain.WizardState, uuid.UUID, error) {
	taskID := uuid.Nil
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step >= domain.StepVideoEdit {
			return fmt.Errorf("%w: already on the last step", domain.ErrInvalidTransition)
		}
		if st.Step == domain.StepScript && strings.TrimSpace(st.Script.Content) == "" {
			return fmt.Errorf("%w: script content is empty", domain.ErrMissingPrecondition)
		}

		// Генерация запускается только когда целевой этап пуст: возврат назад
		// и повторное движение вперед не уничтожают уже созданные данные.
		// Шаг фиксируется только после успешного запуска: отклоненный переход
		// (занятый этап, переполненный менеджер задач) не меняет состояние.
		next := st.Step + 1

		var err error
		switch next {
		case domain.StepStoryboard:
			if len(st.Storyboards) == 0 {
				taskID, err = s.submitStoryboardTask(ctx, st)
			}
		case domain.StepFusion:
			if len(st.FusionImages) == 0 && len(st.Storyboards) > 0 {
				taskID, err = s.submitFusionTask(ctx, st)
			}
		case domain.StepVideoEdit:
			if len(st.FinalVideos) == 0 && len(st.FusionImages) > 0 {
				taskID, err = s.submitVideoBatchTask(ctx, st)
			}
		}
		if err != nil {
			return err
		}
		st.Step = next
		return nil
	})
	if err != nil {
		return nil, uuid.Nil, err
	}

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return state, taskID, nil
}

// Retreat возвращает мастер на любой предыдущий шаг без потери данных.
func (s *WizardService) Retreat(ctx context.Context, sessionID uuid.UUID, target domain.WizardStep) (*domain.WizardState, error) {
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if target < domain.StepScript || target >= st.Step {
			return fmt.Errorf("%w: cannot go back from %s to %s", domain.ErrInvalidTransition, st.Step, target)
		}
		st.Step = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, sessionID)
}

// Finish завершает мастер на последнем шаге: подтвержденные видео оборачиваются
// в сниппеты проекта, сессия уничтожается. Изображение без подтвержденного
// кандидата дает первого сгенерированного; без кандидатов вовсе — пропускается.
func (s *WizardService) Finish(ctx context.Context, sessionID uuid.UUID) ([]domain.Snippet, error) {
	var snippets []domain.Snippet
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepVideoEdit {
			return fmt.Errorf("%w: finish is allowed only on step %s", domain.ErrInvalidTransition, domain.StepVideoEdit)
		}

		title := strings.TrimSpace(st.Script.Title)
		if title == "" {
			title = "Untitled"
		}

		confirmed := st.ResolveConfirmedVideos()
		snippets = make([]domain.Snippet, 0, len(confirmed))
		now := time.Now().UTC()
		for i, v := range confirmed {
			snippets = append(snippets, domain.Snippet{
				ID:        uuid.New(),
				ProjectID: st.ProjectID,
				Name:      fmt.Sprintf("%s - Part %d", title, i+1),
				VideoURL:  v.VideoURL,
				Prompt:    v.Prompt,
				Mode:      domain.SnippetModeScriptToVideo,
				CreatedAt: now,
			})
		}

		return s.projects.AppendSnippets(ctx, st.ProjectID, snippets)
	})
	if err != nil {
		return nil, err
	}

	s.teardown(ctx, sessionID)
	log.Ctx(ctx).Info().
		Str("sessionID", sessionID.String()).
		Int("snippets", len(snippets)).
		Msg("Мастер завершен")
	return snippets, nil
}

// Cancel отменяет сессию мастера: активные задачи генерации прерываются,
// состояние отбрасывается. Отмена отсутствующей сессии не считается ошибкой.
func (s *WizardService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	s.teardown(ctx, sessionID)
	log.Ctx(ctx).Info().Str("sessionID", sessionID.String()).Msg("Сессия мастера отменена")
	return nil
}

// teardown прерывает задачи сессии и удаляет её состояние.
func (s *WizardService) teardown(ctx context.Context, sessionID uuid.UUID) {
	if cancelled := s.tasks.CancelOwned(sessionID.String()); cancelled > 0 {
		log.Ctx(ctx).Debug().
			Str("sessionID", sessionID.String()).
			Int("cancelled", cancelled).
			Msg("Активные задачи генерации отменены")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("sessionID", sessionID.String()).Msg("Не удалось удалить сессию")
	}
}

// GetTaskStatus возвращает статус задачи генерации.
func (s *WizardService) GetTaskStatus(_ context.Context, taskID uuid.UUID) (taskmanager.Task, error) {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return taskmanager.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	return task, nil
}

// OptimizePrompt улучшает пользовательский промпт через текстовую модель.
// При любой ошибке возвращается исходный текст.
func (s *WizardService) OptimizePrompt(ctx context.Context, text string) string {
	return s.gens.Optimizer.OptimizePrompt(ctx, text)
}
