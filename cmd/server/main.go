package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sparkreel-server/internal/config"
	delivery "sparkreel-server/internal/delivery/http"
	ws "sparkreel-server/internal/delivery/websocket"
	"sparkreel-server/internal/generator"
	"sparkreel-server/internal/repository"
	"sparkreel-server/internal/service"
	"sparkreel-server/pkg/ai"
	"sparkreel-server/pkg/taskmanager"
)

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		// Логируем как предупреждение, т.к. в production .env может не использоваться
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	// Инициализация логгера
	initLogger()

	// Парсинг флагов командной строки
	env := flag.String("env", "development", "Environment: development, production")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Инициализация хранилищ. Состояние живет в памяти процесса;
	// демо-проект дает готовый пул ассетов для локальной разработки.
	sessionRepo := repository.NewMemorySessionRepository()
	projectRepo := repository.NewMemoryProjectRepository(repository.SeedDemoProject())

	// Инициализация генераторов: реальные поверх AI API либо стабы,
	// если ключ не задан.
	gens := initGenerators(cfg)

	// Создаем менеджер задач
	taskManager := taskmanager.New(cfg.Generation.MaxTasks)

	// Создаем менеджер WebSocket и подключаем его к задачам
	wsManager := ws.NewManager()
	wsManager.Start()
	taskManager.SetNotifier(wsManager)

	// Инициализация сервиса мастера
	wizardService := service.NewWizardService(
		sessionRepo,
		projectRepo,
		gens,
		taskManager,
		cfg.Generation.DefaultVideoSettings(),
	)

	// Инициализация HTTP обработчиков
	handlers := delivery.New(wizardService)

	// Настройка маршрутов
	router := mux.NewRouter()
	router.Handle("/ws", wsManager.Handler()).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := router.PathPrefix(cfg.Server.BasePath).Subrouter()
	apiRouter.Use(LoggingMiddleware)
	handlers.RegisterRoutes(apiRouter)

	// Настройка CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Создание HTTP сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	// Периодическая очистка завершенных задач
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				taskManager.Cleanup(30 * time.Minute)
			case <-cleanupDone:
				return
			}
		}
	}()

	// Запуск сервера в горутине
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Настройка плавного завершения
	gracefulShutdown(server, taskManager)
	close(cleanupDone)
}

// initLogger настраивает глобальный логгер
func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Caller().Logger()

	// В режиме разработки используем более читаемый вывод
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	// Настройка уровня логирования
	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
}

// initGenerators собирает комплект генераторов конвейера.
func initGenerators(cfg config.Config) generator.Set {
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("AI_API_KEY не задан, используются стаб-генераторы")
		return generator.NewStubSet(
			cfg.Generation.DefaultVideoModel,
			time.Duration(cfg.Generation.StubDelayMs)*time.Millisecond,
		)
	}

	aiClient, err := ai.New(ai.Config{
		APIKey:     cfg.AI.APIKey,
		ModelName:  cfg.AI.Model,
		BaseURL:    cfg.AI.BaseURL,
		Timeout:    cfg.AI.Timeout,
		MaxRetries: cfg.AI.MaxAttempts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI client")
	}

	return generator.Set{
		Storyboard: generator.NewAIStoryboardGenerator(aiClient, cfg.Generation.DefaultVideoModel),
		Fusion:     generator.NewAIFusionGenerator(aiClient, cfg.Generation.ImageURLTemplate),
		Video:      generator.NewAIVideoGenerator(cfg.Generation.VideoURLTemplate),
		Optimizer:  aiClient,
	}
}

// LoggingMiddleware внедряет настроенный логгер в контекст запроса
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxWithLogger := log.Logger.WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctxWithLogger))
	})
}

// gracefulShutdown обеспечивает плавное завершение работы сервера
func gracefulShutdown(server *http.Server, taskManager *taskmanager.Manager) {
	// Ожидание сигнала остановки
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Остановка HTTP сервера
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Остановка менеджера задач
	if err := taskManager.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("task manager shutdown failed")
	}

	log.Info().Msg("server stopped gracefully")
}
