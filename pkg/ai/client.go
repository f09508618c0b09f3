package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrGenerationFailed - ошибка при генерации текста AI.
var ErrGenerationFailed = errors.New("ai text generation failed")

const (
	defaultModel      = "deepseek/deepseek-chat-v3-0324:free"
	defaultBaseURL    = "https://openrouter.ai/api/v1"
	defaultTimeout    = 120
	defaultMaxRetries = 3

	// Кодировка для оценки количества токенов.
	tokenEncoding = "cl100k_base"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkreel_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"status"},
	)
	aiTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkreel_ai_tokens_total",
			Help: "Total number of tokens reported by the AI API.",
		},
		[]string{"direction"},
	)
)

// Config содержит конфигурацию клиента нейросети.
type Config struct {
	APIKey     string
	ModelName  string
	BaseURL    string
	Timeout    int // секунды на одну попытку
	MaxRetries int
}

// Client предоставляет доступ к текстовой модели через OpenAI-совместимый API.
type Client struct {
	client     *openai.Client
	modelName  string
	timeout    time.Duration
	maxRetries int
	encoder    *tiktoken.Tiktoken
}

// New создает новый экземпляр клиента нейросети.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai api key is not set")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}

	// Энкодер нужен только для оценки бюджета токенов; его отсутствие не фатально.
	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		log.Warn().Err(err).Str("encoding", tokenEncoding).Msg("Не удалось инициализировать tiktoken, используется грубая оценка")
		encoder = nil
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		modelName:  cfg.ModelName,
		timeout:    time.Duration(cfg.Timeout) * time.Second,
		maxRetries: cfg.MaxRetries,
		encoder:    encoder,
	}, nil
}

// GenerateText отправляет запрос с системным промптом и вводом пользователя,
// возвращает текст ответа модели. Повторяет запрос до maxRetries раз.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userInput string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userInput},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(attemptCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			aiRequestsTotal.WithLabelValues("error").Inc()
			log.Warn().Err(err).Int("attempt", attempt).Int("maxRetries", c.maxRetries).Msg("Попытка запроса к AI завершилась ошибкой")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = errors.New("received empty response from API")
			aiRequestsTotal.WithLabelValues("empty").Inc()
			continue
		}

		aiRequestsTotal.WithLabelValues("success").Inc()
		aiTokensTotal.WithLabelValues("input").Add(float64(resp.Usage.PromptTokens))
		aiTokensTotal.WithLabelValues("output").Add(float64(resp.Usage.CompletionTokens))
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// OptimizePrompt расширяет короткое описание в детальный промпт для генерации
// видео. При любой ошибке возвращает исходный текст без изменений: падение
// оптимизации никогда не доходит до вызывающего как ошибка.
func (c *Client) OptimizePrompt(ctx context.Context, text string) string {
	const systemPrompt = "You expand short video descriptions into detailed AI video generation prompts. " +
		"Include lighting, camera movement, style and atmosphere. Return ONLY the prompt text."

	optimized, err := c.GenerateText(ctx, systemPrompt, text)
	if err != nil {
		log.Warn().Err(err).Msg("Оптимизация промпта не удалась, возвращаем исходный текст")
		return text
	}
	return optimized
}

// CountTokens оценивает количество токенов в тексте.
func (c *Client) CountTokens(text string) int {
	if c.encoder == nil {
		// Грубая оценка: в среднем 4 символа на токен.
		return len(text) / 4
	}
	return len(c.encoder.Encode(text, nil, nil))
}
