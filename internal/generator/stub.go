package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// Стаб-генераторы дают детерминированный результат без обращения к внешним
// сервисам. Используются при пустом AI_API_KEY и в тестах. Задержка
// имитирует долгий вызов и честно отменяется через контекст.

// StubStoryboardGenerator строит раскадровку из сегментов сценария.
type StubStoryboardGenerator struct {
	defaultModel domain.AiModel
	delay        time.Duration
}

// NewStubStoryboardGenerator создает стаб-генератор раскадровки.
func NewStubStoryboardGenerator(defaultModel domain.AiModel, delay time.Duration) *StubStoryboardGenerator {
	return &StubStoryboardGenerator{defaultModel: defaultModel, delay: delay}
}

// Generate разбивает сценарий и назначает каждому сегменту шаблонный промпт.
// Граница script.MaxShots соблюдается так же, как у AI-генератора.
func (g *StubStoryboardGenerator) Generate(ctx context.Context, script domain.ScriptData, _ domain.AssetSelection) ([]domain.Storyboard, error) {
	if err := sleepCtx(ctx, g.delay); err != nil {
		return nil, err
	}

	segments := splitScript(script.Content, script.MaxShots)
	shots := make([]domain.Storyboard, 0, len(segments))
	for i, seg := range segments {
		shots = append(shots, domain.Storyboard{
			ID:            uuid.New(),
			Sequence:      i + 1,
			ScriptContent: seg,
			Prompt:        fallbackPrompt(seg),
			Assets:        domain.NewAssetBindings(),
			Model:         g.defaultModel,
			AspectRatio:   domain.Aspect169,
			Count:         1,
		})
	}
	return shots, nil
}

// StubFusionGenerator создает изображения с плейсхолдер-URL.
type StubFusionGenerator struct {
	delay time.Duration
}

// NewStubFusionGenerator создает стаб-генератор fusion-изображений.
func NewStubFusionGenerator(delay time.Duration) *StubFusionGenerator {
	return &StubFusionGenerator{delay: delay}
}

// Generate возвращает по одному изображению на кадр, в порядке кадров.
func (g *StubFusionGenerator) Generate(ctx context.Context, storyboards []domain.Storyboard, defaults domain.VideoSettings) ([]domain.FusionImage, error) {
	if err := sleepCtx(ctx, g.delay); err != nil {
		return nil, err
	}

	images := make([]domain.FusionImage, 0, len(storyboards))
	for _, sb := range storyboards {
		id := uuid.New()
		images = append(images, domain.FusionImage{
			ID:           id,
			StoryboardID: sb.ID,
			ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/400/225", id),
			Prompt:       sb.Prompt,
			VideoModel:   defaults.Model,
			Resolution:   defaults.Resolution,
			Duration:     defaults.Duration,
			Count:        defaults.Count,
			Status:       domain.FusionStatusReady,
			AspectRatio:  fusionAspect(sb.AspectRatio),
			Assets:       sb.Assets.Clone(),
		})
	}
	return images, nil
}

// StubVideoGenerator создает кандидатов с плейсхолдер-URL.
type StubVideoGenerator struct {
	delay time.Duration
}

// NewStubVideoGenerator создает стаб-генератор видео.
func NewStubVideoGenerator(delay time.Duration) *StubVideoGenerator {
	return &StubVideoGenerator{delay: delay}
}

// Generate возвращает settings.Count кандидатов для изображения.
func (g *StubVideoGenerator) Generate(ctx context.Context, image domain.FusionImage, settings domain.RegenerateSettings) ([]domain.FinalVideo, error) {
	if err := sleepCtx(ctx, g.delay); err != nil {
		return nil, err
	}

	count := settings.Count
	if count < 1 {
		count = 1
	}
	prompt := settings.Prompt
	if prompt == "" {
		prompt = image.Prompt
	}

	videos := make([]domain.FinalVideo, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		videos = append(videos, domain.FinalVideo{
			ID:            id,
			FusionImageID: image.ID,
			VideoURL:      fmt.Sprintf("https://cdn.sparkreel.dev/samples/%s.mp4", id),
			Prompt:        prompt,
		})
	}
	return videos, nil
}

// IdentityOptimizer возвращает текст без изменений.
type IdentityOptimizer struct{}

// OptimizePrompt реализует PromptOptimizer.
func (IdentityOptimizer) OptimizePrompt(_ context.Context, text string) string {
	return text
}

// NewStubSet собирает полный комплект стаб-генераторов.
func NewStubSet(defaultModel domain.AiModel, delay time.Duration) Set {
	return Set{
		Storyboard: NewStubStoryboardGenerator(defaultModel, delay),
		Fusion:     NewStubFusionGenerator(delay),
		Video:      NewStubVideoGenerator(delay),
		Optimizer:  IdentityOptimizer{},
	}
}

// sleepCtx ждет delay либо отмену контекста.
func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
