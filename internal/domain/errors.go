package domain

import "errors"

// Стандартные ошибки ядра мастера. Все они восстановимы на уровне UI:
// повтор запроса или исправление ввода. Ни одна не фатальна для процесса.
var (
	// Ошибки навигации по шагам
	ErrInvalidTransition   = errors.New("invalid wizard step transition")
	ErrMissingPrecondition = errors.New("missing required input for current step")

	// Ошибки генерации
	ErrGenerationInProgress = errors.New("generation is already in progress for this stage")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrStaleSession         = errors.New("generation result arrived for a discarded session")

	// Ошибки ссылок и ввода
	ErrInvalidReference = errors.New("referenced id is not present in the expected set")
	ErrInvalidInput     = errors.New("invalid input data")

	// Ошибки поиска ресурсов
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
)
