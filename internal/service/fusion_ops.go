package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// Операции над fusion-изображениями. Доступны только на четвертом шаге.

// FusionItemPatch — частичное обновление одного fusion-изображения.
// Заданные поля перезаписываются, остальные не трогаются.
type FusionItemPatch struct {
	Prompt       *string             `json:"prompt,omitempty"`
	VideoModel   *domain.AiModel     `json:"video_model,omitempty"`
	Resolution   *domain.Resolution  `json:"resolution,omitempty"`
	Duration     *domain.Duration    `json:"duration,omitempty"`
	Count        *int                `json:"count,omitempty"`
	AspectRatio  *domain.AspectRatio `json:"aspect_ratio,omitempty"`
	RefPoseImage *string             `json:"ref_pose_image,omitempty"`
}

// UpdateFusionItem применяет частичное обновление к одному изображению.
// Глобальные настройки при этом не меняются.
func (s *WizardService) UpdateFusionItem(ctx context.Context, sessionID, imageID uuid.UUID, patch FusionItemPatch) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepFusion {
			return fmt.Errorf("%w: fusion images are editable only on step %s", domain.ErrInvalidTransition, domain.StepFusion)
		}
		img := st.FusionImageByID(imageID)
		if img == nil {
			return fmt.Errorf("%w: fusion image %s", domain.ErrNotFound, imageID)
		}
		if patch.Prompt != nil {
			img.Prompt = *patch.Prompt
		}
		if patch.VideoModel != nil {
			img.VideoModel = *patch.VideoModel
		}
		if patch.Resolution != nil {
			img.Resolution = *patch.Resolution
		}
		if patch.Duration != nil {
			img.Duration = *patch.Duration
		}
		if patch.Count != nil {
			img.Count = *patch.Count
		}
		if patch.AspectRatio != nil {
			img.AspectRatio = *patch.AspectRatio
		}
		if patch.RefPoseImage != nil {
			img.RefPoseImage = *patch.RefPoseImage
		}
		return nil
	})
}

// ToggleFusionAsset переключает привязку ассета к изображению.
// Ассет обязан входить в выбор второго шага.
func (s *WizardService) ToggleFusionAsset(ctx context.Context, sessionID, imageID uuid.UUID, kind domain.AssetKind, assetID uuid.UUID) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown asset kind %q", domain.ErrInvalidInput, kind)
	}
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepFusion {
			return fmt.Errorf("%w: fusion images are editable only on step %s", domain.ErrInvalidTransition, domain.StepFusion)
		}
		img := st.FusionImageByID(imageID)
		if img == nil {
			return fmt.Errorf("%w: fusion image %s", domain.ErrNotFound, imageID)
		}
		if !st.SelectedAssets.Contains(kind, assetID) {
			return fmt.Errorf("%w: %s %s is not among selected assets", domain.ErrInvalidReference, kind, assetID)
		}
		img.Assets.Toggle(kind, assetID)
		return nil
	})
}

// DeleteFusionItem удаляет одно изображение. Каскада нет: исходный кадр
// раскадровки и уже сгенерированные кандидаты видео остаются.
func (s *WizardService) DeleteFusionItem(ctx context.Context, sessionID, imageID uuid.UUID) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepFusion {
			return fmt.Errorf("%w: fusion images are editable only on step %s", domain.ErrInvalidTransition, domain.StepFusion)
		}
		if !st.DeleteFusionImage(imageID) {
			return fmt.Errorf("%w: fusion image %s", domain.ErrNotFound, imageID)
		}
		return nil
	})
}

// SetGlobalVideoSettings применяет частичное обновление глобальных настроек
// видео. Каждое заданное поле широковещательно перезаписывается на всех
// существующих изображениях и становится умолчанием для будущих.
func (s *WizardService) SetGlobalVideoSettings(ctx context.Context, sessionID uuid.UUID, patch domain.VideoSettingsPatch) error {
	if patch.Count != nil && *patch.Count < 1 {
		return fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
	}
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepFusion {
			return fmt.Errorf("%w: video settings are editable only on step %s", domain.ErrInvalidTransition, domain.StepFusion)
		}
		st.ApplyVideoDefaults(patch)
		return nil
	})
}
