package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sparkreel-server/internal/domain"
)

// Оркестрация асинхронной генерации. Правила одинаковы для всех этапов:
// не более одной выполняющейся задачи на этап в рамках сессии, повторный
// запуск отклоняется с ErrGenerationInProgress, а не ставится в очередь.
// Результат применяется атомарно и целиком; результат для уже отброшенной
// сессии молча отбрасывается с записью в лог.

// GenerateStoryboards запускает полную регенерацию раскадровки.
// Прежний список кадров будет заменен целиком.
func (s *WizardService) GenerateStoryboards(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	taskID := uuid.Nil
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard generation is allowed only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		var err error
		taskID, err = s.submitStoryboardTask(ctx, st)
		return err
	})
	return taskID, err
}

// GenerateFusion запускает генерацию fusion-изображений по текущей раскадровке.
// Прежний список изображений будет заменен целиком.
func (s *WizardService) GenerateFusion(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	taskID := uuid.Nil
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepFusion {
			return fmt.Errorf("%w: fusion generation is allowed only on step %s", domain.ErrInvalidTransition, domain.StepFusion)
		}
		if len(st.Storyboards) == 0 {
			return fmt.Errorf("%w: storyboard is empty", domain.ErrMissingPrecondition)
		}
		var err error
		taskID, err = s.submitFusionTask(ctx, st)
		return err
	})
	return taskID, err
}

// GenerateVideos запускает пакетную генерацию кандидатов видео для всех
// fusion-изображений, каждое со своими параметрами.
func (s *WizardService) GenerateVideos(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	taskID := uuid.Nil
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepVideoEdit {
			return fmt.Errorf("%w: video generation is allowed only on step %s", domain.ErrInvalidTransition, domain.StepVideoEdit)
		}
		if len(st.FusionImages) == 0 {
			return fmt.Errorf("%w: no fusion images to render", domain.ErrMissingPrecondition)
		}
		var err error
		taskID, err = s.submitVideoBatchTask(ctx, st)
		return err
	})
	return taskID, err
}

// submitStoryboardTask запускает задачу генерации раскадровки.
// Вызывается только изнутри mutate-замыкания хранилища сессий.
func (s *WizardService) submitStoryboardTask(ctx context.Context, st *domain.WizardState) (uuid.UUID, error) {
	if _, busy := st.InFlight[domain.StageStoryboard]; busy {
		return uuid.Nil, domain.ErrGenerationInProgress
	}

	sessionID := st.SessionID
	token := st.GenerationToken
	snapshot := st.Clone()

	taskID, err := s.tasks.Submit(ctx, sessionID.String(), string(domain.StageStoryboard), func(taskCtx context.Context) (interface{}, error) {
		shots, err := s.gens.Storyboard.Generate(taskCtx, snapshot.Script, snapshot.SelectedAssets)
		if err != nil {
			s.clearInFlight(taskCtx, sessionID, domain.StageStoryboard)
			return nil, err
		}
		if err := s.applyResult(taskCtx, sessionID, domain.StageStoryboard, token, func(st *domain.WizardState) {
			st.SetStoryboards(shots)
		}); err != nil {
			return nil, err
		}
		return map[string]interface{}{"shots": len(shots)}, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	st.InFlight[domain.StageStoryboard] = taskID
	return taskID, nil
}

// submitFusionTask запускает задачу генерации fusion-изображений.
// Вызывается только изнутри mutate-замыкания хранилища сессий.
func (s *WizardService) submitFusionTask(ctx context.Context, st *domain.WizardState) (uuid.UUID, error) {
	if _, busy := st.InFlight[domain.StageFusion]; busy {
		return uuid.Nil, domain.ErrGenerationInProgress
	}

	sessionID := st.SessionID
	token := st.GenerationToken
	snapshot := st.Clone()

	taskID, err := s.tasks.Submit(ctx, sessionID.String(), string(domain.StageFusion), func(taskCtx context.Context) (interface{}, error) {
		images, err := s.gens.Fusion.Generate(taskCtx, snapshot.Storyboards, snapshot.GlobalVideo)
		if err != nil {
			s.clearInFlight(taskCtx, sessionID, domain.StageFusion)
			return nil, err
		}
		if err := s.applyResult(taskCtx, sessionID, domain.StageFusion, token, func(st *domain.WizardState) {
			st.FusionImages = images
		}); err != nil {
			return nil, err
		}
		return map[string]interface{}{"images": len(images)}, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	st.InFlight[domain.StageFusion] = taskID
	return taskID, nil
}

// submitVideoBatchTask запускает пакетную генерацию видео для всех изображений.
// Вызывается только изнутри mutate-замыкания хранилища сессий.
// При первой пакетной генерации подтвержденным становится ПЕРВЫЙ кандидат
// каждого изображения; повторная генерация отдельного изображения, напротив,
// подтверждает новейшего (см. RegenerateVideo).
func (s *WizardService) submitVideoBatchTask(ctx context.Context, st *domain.WizardState) (uuid.UUID, error) {
	if _, busy := st.InFlight[domain.StageVideo]; busy {
		return uuid.Nil, domain.ErrGenerationInProgress
	}

	sessionID := st.SessionID
	token := st.GenerationToken
	snapshot := st.Clone()

	taskID, err := s.tasks.Submit(ctx, sessionID.String(), string(domain.StageVideo), func(taskCtx context.Context) (interface{}, error) {
		var batch []domain.FinalVideo
		for _, img := range snapshot.FusionImages {
			videos, err := s.gens.Video.Generate(taskCtx, img, domain.RegenerateSettings{
				Model:      img.VideoModel,
				Resolution: img.Resolution,
				Duration:   img.Duration,
				Count:      img.Count,
			})
			if err != nil {
				s.clearInFlight(taskCtx, sessionID, domain.StageVideo)
				return nil, err
			}
			batch = append(batch, videos...)
		}

		if err := s.applyResult(taskCtx, sessionID, domain.StageVideo, token, func(st *domain.WizardState) {
			st.FinalVideos = append(st.FinalVideos, batch...)
			for i := range st.FusionImages {
				img := &st.FusionImages[i]
				img.Status = domain.FusionStatusDone
				if img.ConfirmedVideoID == nil {
					if candidates := st.CandidatesFor(img.ID); len(candidates) > 0 {
						id := candidates[0].ID
						img.ConfirmedVideoID = &id
					}
				}
			}
		}); err != nil {
			return nil, err
		}
		return map[string]interface{}{"videos": len(batch)}, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	st.InFlight[domain.StageVideo] = taskID
	for i := range st.FusionImages {
		st.FusionImages[i].Status = domain.FusionStatusGenerating
	}
	return taskID, nil
}

// applyResult атомарно применяет результат генерации к сессии и снимает
// отметку выполняющейся задачи. Результат для отброшенной сессии или чужого
// поколения не применяется.
func (s *WizardService) applyResult(ctx context.Context, sessionID uuid.UUID, stage domain.Stage, token uuid.UUID, apply func(*domain.WizardState)) error {
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.GenerationToken != token {
			return domain.ErrStaleSession
		}
		delete(st.InFlight, stage)
		apply(st)
		return nil
	})
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrStaleSession) {
		log.Ctx(ctx).Info().
			Str("sessionID", sessionID.String()).
			Str("stage", string(stage)).
			Msg("Результат генерации отброшен: сессия больше не существует")
		return err
	}
	return err
}

// clearInFlight снимает отметку выполняющейся задачи после ошибки генерации.
// Состояние этапа при этом не меняется.
func (s *WizardService) clearInFlight(ctx context.Context, sessionID uuid.UUID, stage domain.Stage) {
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		delete(st.InFlight, stage)
		if stage == domain.StageVideo {
			for i := range st.FusionImages {
				if st.FusionImages[i].Status == domain.FusionStatusGenerating {
					st.FusionImages[i].Status = domain.FusionStatusReady
				}
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		log.Ctx(ctx).Warn().Err(err).Str("sessionID", sessionID.String()).Msg("Не удалось снять отметку задачи генерации")
	}
}
