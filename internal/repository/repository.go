package repository

import (
	"context"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// SessionRepository определяет методы хранилища сессий мастера.
// Состояние живет только в памяти процесса: сессия отбрасывается при отмене
// и не переживает перезапуск — долговременное хранение не входит в задачу ядра.
type SessionRepository interface {
	// Create сохраняет новую сессию. Возвращает ошибку при коллизии ID.
	Create(ctx context.Context, state *domain.WizardState) error
	// Get возвращает копию состояния сессии, безопасную для сериализации.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.WizardState, error)
	// Update атомарно применяет mutate к состоянию сессии под блокировкой.
	// mutate обязан либо выполнить преобразование целиком, либо вернуть
	// ошибку, не тронув состояние.
	Update(ctx context.Context, sessionID uuid.UUID, mutate func(*domain.WizardState) error) error
	// Delete удаляет сессию. Удаление отсутствующей сессии — не ошибка.
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// ProjectRepository определяет методы хранилища проектов и их пула ассетов.
// Мастер читает пул и добавляет сниппеты при завершении; сам пул ассетов
// со стороны мастера неизменяем.
type ProjectRepository interface {
	// GetProject возвращает проект по ID.
	GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	// ListAssets возвращает пул ассетов проекта.
	ListAssets(ctx context.Context, projectID uuid.UUID) (domain.AssetSelection, error)
	// AppendSnippets добавляет готовые сниппеты к проекту.
	AppendSnippets(ctx context.Context, projectID uuid.UUID, snippets []domain.Snippet) error
}
