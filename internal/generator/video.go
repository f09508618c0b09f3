package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// AIVideoGenerator создает кандидатов видео для fusion-изображения.
// Сами клипы рендерит внешний сервис по шаблону URL.
type AIVideoGenerator struct {
	videoURLTemplate string
}

// NewAIVideoGenerator создает генератор видео.
func NewAIVideoGenerator(videoURLTemplate string) *AIVideoGenerator {
	if videoURLTemplate == "" {
		videoURLTemplate = "https://cdn.sparkreel.dev/video/%s.mp4"
	}
	return &AIVideoGenerator{videoURLTemplate: videoURLTemplate}
}

// Generate возвращает settings.Count кандидатов, привязанных к изображению.
// Промпт из настроек имеет приоритет над промптом изображения.
func (g *AIVideoGenerator) Generate(ctx context.Context, image domain.FusionImage, settings domain.RegenerateSettings) ([]domain.FinalVideo, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
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
			VideoURL:      fmt.Sprintf(g.videoURLTemplate, id),
			Prompt:        prompt,
		})
	}
	return videos, nil
}
