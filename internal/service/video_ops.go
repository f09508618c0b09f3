package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// Операции монтажа. Доступны только на пятом шаге мастера.
// Кандидаты видео накапливаются: повторная генерация добавляет новых,
// прежние остаются доступными для выбора до самого завершения.

// RegenerateVideo запускает повторную генерацию кандидатов для одного
// fusion-изображения с переопределенными параметрами. После применения
// результата подтвержденным становится НОВЕЙШИЙ кандидат: пользователь,
// запросивший регенерацию, почти наверняка хочет именно её результат.
func (s *WizardService) RegenerateVideo(ctx context.Context, sessionID, imageID uuid.UUID, settings domain.RegenerateSettings) (uuid.UUID, error) {
	if settings.Count < 1 {
		settings.Count = 1
	}

	taskID := uuid.Nil
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepVideoEdit {
			return fmt.Errorf("%w: video editing is allowed only on step %s", domain.ErrInvalidTransition, domain.StepVideoEdit)
		}
		img := st.FusionImageByID(imageID)
		if img == nil {
			return fmt.Errorf("%w: fusion image %s", domain.ErrNotFound, imageID)
		}
		if _, busy := st.InFlight[domain.StageVideo]; busy {
			return domain.ErrGenerationInProgress
		}

		sessionID := st.SessionID
		token := st.GenerationToken
		snapshot := *img
		snapshot.Assets = img.Assets.Clone()

		submittedID, err := s.tasks.Submit(ctx, sessionID.String(), string(domain.StageVideo), func(taskCtx context.Context) (interface{}, error) {
			videos, err := s.gens.Video.Generate(taskCtx, snapshot, settings)
			if err != nil {
				s.clearInFlight(taskCtx, sessionID, domain.StageVideo)
				return nil, err
			}
			if err := s.applyResult(taskCtx, sessionID, domain.StageVideo, token, func(st *domain.WizardState) {
				st.FinalVideos = append(st.FinalVideos, videos...)
				if img := st.FusionImageByID(imageID); img != nil {
					img.Status = domain.FusionStatusDone
					if len(videos) > 0 {
						id := videos[len(videos)-1].ID
						img.ConfirmedVideoID = &id
					}
				}
			}); err != nil {
				return nil, err
			}
			return map[string]interface{}{"videos": len(videos)}, nil
		})
		if err != nil {
			return err
		}

		// Параметры регенерации запоминаются на изображении.
		img.VideoModel = settings.Model
		img.Resolution = settings.Resolution
		img.Duration = settings.Duration
		img.Count = settings.Count
		img.Status = domain.FusionStatusGenerating
		st.InFlight[domain.StageVideo] = submittedID
		taskID = submittedID
		return nil
	})
	return taskID, err
}

// ConfirmVideo выбирает кандидата как подтвержденное видео изображения.
// Кандидат обязан принадлежать именно этому изображению.
func (s *WizardService) ConfirmVideo(ctx context.Context, sessionID, imageID, videoID uuid.UUID) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepVideoEdit {
			return fmt.Errorf("%w: video editing is allowed only on step %s", domain.ErrInvalidTransition, domain.StepVideoEdit)
		}
		img := st.FusionImageByID(imageID)
		if img == nil {
			return fmt.Errorf("%w: fusion image %s", domain.ErrNotFound, imageID)
		}
		video := st.FinalVideoByID(videoID)
		if video == nil || video.FusionImageID != imageID {
			return fmt.Errorf("%w: video %s is not a candidate of image %s", domain.ErrInvalidReference, videoID, imageID)
		}
		id := videoID
		img.ConfirmedVideoID = &id
		return nil
	})
}

// SetDubbing прикрепляет озвучку к кандидату видео.
func (s *WizardService) SetDubbing(ctx context.Context, sessionID, videoID uuid.UUID, dubbing domain.Dubbing) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepVideoEdit {
			return fmt.Errorf("%w: video editing is allowed only on step %s", domain.ErrInvalidTransition, domain.StepVideoEdit)
		}
		video := st.FinalVideoByID(videoID)
		if video == nil {
			return fmt.Errorf("%w: video %s", domain.ErrNotFound, videoID)
		}
		video.Dubbing = &dubbing
		return nil
	})
}
