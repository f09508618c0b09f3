package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// sessionEntry связывает состояние сессии с её собственным мьютексом,
// чтобы мутации разных сессий не блокировали друг друга.
type sessionEntry struct {
	mu    sync.Mutex
	state *domain.WizardState
}

// MemorySessionRepository хранит сессии мастера в памяти процесса.
// Каждая открытая сессия изолирована: общего изменяемого состояния
// между одновременно открытыми мастерами нет.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewMemorySessionRepository создает пустое хранилище сессий.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// Create сохраняет новую сессию.
func (r *MemorySessionRepository) Create(_ context.Context, state *domain.WizardState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[state.SessionID]; ok {
		return fmt.Errorf("session %s already exists", state.SessionID)
	}
	r.sessions[state.SessionID] = &sessionEntry{state: state}
	return nil
}

// Get возвращает глубокую копию состояния сессии.
func (r *MemorySessionRepository) Get(_ context.Context, sessionID uuid.UUID) (*domain.WizardState, error) {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Clone(), nil
}

// Update атомарно применяет mutate под блокировкой сессии.
func (r *MemorySessionRepository) Update(_ context.Context, sessionID uuid.UUID, mutate func(*domain.WizardState) error) error {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := mutate(entry.state); err != nil {
		return err
	}
	entry.state.Touch()
	return nil
}

// Delete удаляет сессию.
func (r *MemorySessionRepository) Delete(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
