package config

import (
	"os"
	"strconv"
	"strings"

	"sparkreel-server/internal/domain"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	AI          AIConfig
	CORS        CORSConfig
	Generation  GenerationConfig
}

// ServerConfig содержит конфигурацию сервера
type ServerConfig struct {
	Port                int
	BasePath            string
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
	IdleTimeoutSeconds  int
}

// AIConfig содержит конфигурацию для AI API.
// Пустой APIKey переключает сервер на стаб-генераторы.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     int
	MaxAttempts int
}

// CORSConfig содержит конфигурацию CORS
type CORSConfig struct {
	AllowedOrigins []string
}

// GenerationConfig содержит настройки конвейера генерации.
type GenerationConfig struct {
	DefaultVideoModel domain.AiModel
	DefaultResolution domain.Resolution
	DefaultDuration   domain.Duration
	DefaultCount      int
	ImageURLTemplate  string
	VideoURLTemplate  string
	StubDelayMs       int
	MaxTasks          int
}

// Load загружает конфигурацию из переменных окружения
func Load(env string) (Config, error) {
	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:                getEnvInt("SERVER_PORT", 8080),
			BasePath:            getEnvStr("SERVER_BASE_PATH", "/api"),
			ReadTimeoutSeconds:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeoutSeconds: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeoutSeconds:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		AI: AIConfig{
			APIKey:      getEnvStr("AI_API_KEY", ""),
			Model:       getEnvStr("AI_MODEL", "deepseek/deepseek-chat"),
			BaseURL:     getEnvStr("AI_BASE_URL", "https://openrouter.ai/api/v1"),
			Timeout:     getEnvInt("AI_TIMEOUT", 120),
			MaxAttempts: getEnvInt("AI_MAX_ATTEMPTS", 3),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnvStr("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		},
		Generation: GenerationConfig{
			DefaultVideoModel: domain.AiModel(getEnvStr("GEN_DEFAULT_MODEL", string(domain.ModelWan25))),
			DefaultResolution: domain.Resolution(getEnvStr("GEN_DEFAULT_RESOLUTION", string(domain.Resolution1080p))),
			DefaultDuration:   domain.Duration(getEnvStr("GEN_DEFAULT_DURATION", string(domain.Duration5s))),
			DefaultCount:      getEnvInt("GEN_DEFAULT_COUNT", 1),
			ImageURLTemplate:  getEnvStr("GEN_IMAGE_URL_TEMPLATE", ""),
			VideoURLTemplate:  getEnvStr("GEN_VIDEO_URL_TEMPLATE", ""),
			StubDelayMs:       getEnvInt("GEN_STUB_DELAY_MS", 300),
			MaxTasks:          getEnvInt("GEN_MAX_TASKS", 20),
		},
	}

	return cfg, nil
}

// DefaultVideoSettings собирает глобальные настройки видео по умолчанию.
func (c GenerationConfig) DefaultVideoSettings() domain.VideoSettings {
	return domain.VideoSettings{
		Model:      c.DefaultVideoModel,
		Resolution: c.DefaultResolution,
		Duration:   c.DefaultDuration,
		Count:      c.DefaultCount,
	}
}

// getEnvStr возвращает строковое значение из переменной окружения или значение по умолчанию
func getEnvStr(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt возвращает целочисленное значение из переменной окружения или значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
