package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sparkreel-server/internal/domain"
)

// Бюджет токенов на сценарий в одном запросе к модели.
const maxScriptTokens = 6000

const storyboardSystemPrompt = `You are a storyboard director for an AI comic video platform.
Given numbered script segments, produce one detailed image generation prompt per segment.
Each prompt must describe a single cinematic shot: composition, characters, lighting, style.
Answer with a JSON array of strings, one per segment, in the same order. Return ONLY the JSON array.`

// AIStoryboardGenerator строит раскадровку через текстовую модель.
type AIStoryboardGenerator struct {
	client       TextClient
	defaultModel domain.AiModel
}

// NewAIStoryboardGenerator создает генератор раскадровки поверх текстовой модели.
func NewAIStoryboardGenerator(client TextClient, defaultModel domain.AiModel) *AIStoryboardGenerator {
	return &AIStoryboardGenerator{client: client, defaultModel: defaultModel}
}

// Generate разбивает сценарий на сегменты и запрашивает у модели по одному
// промпту на сегмент. Количество кадров никогда не превышает script.MaxShots:
// лишние результаты модели отбрасываются.
func (g *AIStoryboardGenerator) Generate(ctx context.Context, script domain.ScriptData, assets domain.AssetSelection) ([]domain.Storyboard, error) {
	content := truncateToTokens(script.Content, maxScriptTokens, g.client.CountTokens)
	segments := splitScript(content, script.MaxShots)
	if len(segments) == 0 {
		return []domain.Storyboard{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Style context: %s\n", styleContext(assets))
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, seg)
	}

	answer, err := g.client.GenerateText(ctx, storyboardSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	prompts, err := parsePromptList(answer)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Не удалось разобрать ответ модели, используются промпты из сегментов")
		prompts = nil
	}

	shots := make([]domain.Storyboard, 0, len(segments))
	for i, seg := range segments {
		prompt := fallbackPrompt(seg)
		if i < len(prompts) && strings.TrimSpace(prompts[i]) != "" {
			prompt = strings.TrimSpace(prompts[i])
		}
		shots = append(shots, domain.Storyboard{
			ID:            uuid.New(),
			Sequence:      i + 1,
			ScriptContent: seg,
			Prompt:        prompt,
			Assets:        domain.NewAssetBindings(),
			Model:         g.defaultModel,
			AspectRatio:   domain.Aspect169,
			Count:         1,
		})
	}
	return shots, nil
}

// styleContext собирает краткий контекст стиля из выбранных ассетов.
// Привязка ассетов к кадрам остается пустой: это отдельное явное действие
// пользователя, контекст влияет только на формулировки промптов.
func styleContext(assets domain.AssetSelection) string {
	var parts []string
	for _, c := range assets.Characters {
		parts = append(parts, "character "+c.Name)
	}
	for _, s := range assets.Scenes {
		parts = append(parts, "scene "+s.Name)
	}
	for _, p := range assets.Props {
		parts = append(parts, "prop "+p.Name)
	}
	if len(parts) == 0 {
		return "anime, cinematic"
	}
	return "anime, cinematic, featuring " + strings.Join(parts, ", ")
}

func fallbackPrompt(segment string) string {
	const limit = 120
	excerpt := segment
	if runes := []rune(excerpt); len(runes) > limit {
		excerpt = string(runes[:limit])
	}
	return "Anime style, cinematic shot of: " + excerpt
}

// splitScript режет текст сценария на не более чем maxSegments сегментов.
// Сначала по абзацам, затем, если абзацев мало, по предложениям;
// лишние сегменты сливаются с последним.
func splitScript(content string, maxSegments int) []string {
	if maxSegments < 1 {
		maxSegments = 1
	}

	var raw []string
	for _, p := range strings.Split(content, "\n") {
		if s := strings.TrimSpace(p); s != "" {
			raw = append(raw, s)
		}
	}
	if len(raw) == 1 {
		raw = splitSentences(raw[0])
	}
	if len(raw) == 0 {
		return nil
	}

	if len(raw) <= maxSegments {
		return raw
	}
	out := make([]string, maxSegments)
	copy(out, raw[:maxSegments])
	out[maxSegments-1] = strings.Join(raw[maxSegments-1:], " ")
	return out
}

// splitSentences разбивает текст по завершающим знакам препинания,
// включая CJK-пунктуацию.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// truncateToTokens обрезает текст до бюджета токенов.
func truncateToTokens(text string, budget int, countTokens func(string) int) string {
	if countTokens(text) <= budget {
		return text
	}
	runes := []rune(text)
	// Двоичный поиск по длине: редкая операция, точность важнее скорости.
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if countTokens(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

// parsePromptList разбирает ответ модели как JSON-массив строк,
// предварительно сняв markdown-разметку.
func parsePromptList(answer string) ([]string, error) {
	cleaned := cleanModelResponse(answer)
	var prompts []string
	if err := json.Unmarshal([]byte(cleaned), &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt list: %w", err)
	}
	return prompts, nil
}

// cleanModelResponse снимает обрамляющие markdown-блоки с ответа модели.
func cleanModelResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
