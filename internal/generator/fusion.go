package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// AIFusionGenerator создает fusion-изображения: по одному на кадр раскадровки.
// Фактическая генерация картинки выполняется внешним сервисом, доступным
// по шаблону URL; здесь формируется промпт и параметры видео.
type AIFusionGenerator struct {
	optimizer        PromptOptimizer
	imageURLTemplate string
}

// NewAIFusionGenerator создает генератор fusion-изображений.
func NewAIFusionGenerator(optimizer PromptOptimizer, imageURLTemplate string) *AIFusionGenerator {
	if imageURLTemplate == "" {
		imageURLTemplate = "https://cdn.sparkreel.dev/fusion/%s.png"
	}
	return &AIFusionGenerator{optimizer: optimizer, imageURLTemplate: imageURLTemplate}
}

// Generate возвращает ровно len(storyboards) изображений в порядке кадров.
// Каждое получает глобальные настройки видео и независимую копию привязок
// ассетов кадра: дальнейшие правки изображения и кадра не влияют друг на друга.
func (g *AIFusionGenerator) Generate(ctx context.Context, storyboards []domain.Storyboard, defaults domain.VideoSettings) ([]domain.FusionImage, error) {
	images := make([]domain.FusionImage, 0, len(storyboards))
	for _, sb := range storyboards {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		id := uuid.New()
		images = append(images, domain.FusionImage{
			ID:           id,
			StoryboardID: sb.ID,
			ImageURL:     fmt.Sprintf(g.imageURLTemplate, id),
			Prompt:       g.optimizer.OptimizePrompt(ctx, sb.Prompt),
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

// fusionAspect переносит соотношение сторон кадра на изображение.
// 2.35:1 на этапе раскадровки не встречается, поэтому маппинг прямой.
func fusionAspect(a domain.AspectRatio) domain.AspectRatio {
	switch a {
	case domain.Aspect916:
		return domain.Aspect916
	case domain.Aspect11:
		return domain.Aspect11
	default:
		return domain.Aspect169
	}
}
