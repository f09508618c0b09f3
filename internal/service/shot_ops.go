package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// Операции над раскадровкой. Все доступны только на третьем шаге мастера
// и сохраняют непрерывную нумерацию кадров 1..N.

// InsertShotAfter вставляет кадр с плейсхолдер-содержимым сразу после
// позиции index (0-based). index == -1 вставляет в начало.
// Возвращает созданный кадр.
func (s *WizardService) InsertShotAfter(ctx context.Context, sessionID uuid.UUID, index int) (*domain.Storyboard, error) {
	var created domain.Storyboard
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard is editable only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		created = domain.Storyboard{
			ID:            uuid.New(),
			ScriptContent: "New inserted segment",
			Prompt:        "New shot description",
			Assets:        domain.NewAssetBindings(),
			Model:         s.defaults.Model,
			AspectRatio:   domain.Aspect169,
			Count:         1,
		}
		st.InsertShotAfter(index, created)
		created = *st.StoryboardByID(created.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteShot удаляет кадр и перенумеровывает оставшиеся. Минимума кадров нет.
func (s *WizardService) DeleteShot(ctx context.Context, sessionID, shotID uuid.UUID) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard is editable only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		if !st.DeleteShot(shotID) {
			return fmt.Errorf("%w: storyboard shot %s", domain.ErrNotFound, shotID)
		}
		return nil
	})
}

// EditShotPrompt обновляет промпт кадра. Возвращает true, если от кадра уже
// порождены fusion-изображения: они не обновляются, изменение действует
// только вперед по конвейеру, и вызывающая сторона может предупредить об этом.
func (s *WizardService) EditShotPrompt(ctx context.Context, sessionID, shotID uuid.UUID, prompt string) (bool, error) {
	var downstreamStale bool
	err := s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard is editable only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		shot := st.StoryboardByID(shotID)
		if shot == nil {
			return fmt.Errorf("%w: storyboard shot %s", domain.ErrNotFound, shotID)
		}
		shot.Prompt = prompt
		downstreamStale = st.HasDownstreamFor(shotID)
		return nil
	})
	return downstreamStale, err
}

// UpdateShotScript обновляет текст сценария кадра.
func (s *WizardService) UpdateShotScript(ctx context.Context, sessionID, shotID uuid.UUID, content string) error {
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard is editable only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		shot := st.StoryboardByID(shotID)
		if shot == nil {
			return fmt.Errorf("%w: storyboard shot %s", domain.ErrNotFound, shotID)
		}
		shot.ScriptContent = content
		return nil
	})
}

// ToggleShotAsset переключает привязку ассета к кадру. Ассет обязан входить
// в выбор второго шага; сцена у кадра эксклюзивна.
func (s *WizardService) ToggleShotAsset(ctx context.Context, sessionID, shotID uuid.UUID, kind domain.AssetKind, assetID uuid.UUID) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown asset kind %q", domain.ErrInvalidInput, kind)
	}
	return s.sessions.Update(ctx, sessionID, func(st *domain.WizardState) error {
		if st.Step != domain.StepStoryboard {
			return fmt.Errorf("%w: storyboard is editable only on step %s", domain.ErrInvalidTransition, domain.StepStoryboard)
		}
		shot := st.StoryboardByID(shotID)
		if shot == nil {
			return fmt.Errorf("%w: storyboard shot %s", domain.ErrNotFound, shotID)
		}
		if !st.SelectedAssets.Contains(kind, assetID) {
			return fmt.Errorf("%w: %s %s is not among selected assets", domain.ErrInvalidReference, kind, assetID)
		}
		shot.Assets.Toggle(kind, assetID)
		return nil
	})
}
