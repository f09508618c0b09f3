package generator

import (
	"context"

	"sparkreel-server/internal/domain"
)

// TextClient определяет минимальный интерфейс текстовой модели,
// необходимый генераторам. Реализуется pkg/ai.Client.
type TextClient interface {
	GenerateText(ctx context.Context, systemPrompt, userInput string) (string, error)
	CountTokens(text string) int
}

// PromptOptimizer улучшает короткое описание до развернутого промпта.
// Реализация обязана возвращать исходный текст при любой ошибке:
// оптимизация никогда не ломает вызывающий код.
type PromptOptimizer interface {
	OptimizePrompt(ctx context.Context, text string) string
}

// StoryboardGenerator превращает сценарий и выбранные ассеты в упорядоченную
// раскадровку. Вызов долгий и атомарный: частичных результатов нет,
// при ошибке повторяется целиком.
type StoryboardGenerator interface {
	Generate(ctx context.Context, script domain.ScriptData, assets domain.AssetSelection) ([]domain.Storyboard, error)
}

// FusionGenerator создает ровно одно fusion-изображение на каждый кадр
// раскадровки, в том же порядке. Либо успех целиком, либо ошибка
// без частичных результатов.
type FusionGenerator interface {
	Generate(ctx context.Context, storyboards []domain.Storyboard, defaults domain.VideoSettings) ([]domain.FusionImage, error)
}

// VideoGenerator создает кандидатов видео для одного fusion-изображения.
type VideoGenerator interface {
	Generate(ctx context.Context, image domain.FusionImage, settings domain.RegenerateSettings) ([]domain.FinalVideo, error)
}

// Set объединяет генераторы всех этапов конвейера.
type Set struct {
	Storyboard StoryboardGenerator
	Fusion     FusionGenerator
	Video      VideoGenerator
	Optimizer  PromptOptimizer
}
