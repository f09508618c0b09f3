package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// MemoryProjectRepository хранит проекты и их пулы ассетов в памяти.
// Явный объект-хранилище вместо глобального изменяемого состояния:
// передается по ссылке каждому компоненту, которому нужен доступ.
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*domain.Project
}

// NewMemoryProjectRepository создает хранилище с заданными проектами.
func NewMemoryProjectRepository(projects ...*domain.Project) *MemoryProjectRepository {
	repo := &MemoryProjectRepository{
		projects: make(map[uuid.UUID]*domain.Project, len(projects)),
	}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

// GetProject возвращает копию проекта по ID.
func (r *MemoryProjectRepository) GetProject(_ context.Context, projectID uuid.UUID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	out := *p
	out.Characters = append([]domain.Character{}, p.Characters...)
	out.Scenes = append([]domain.Scene{}, p.Scenes...)
	out.Props = append([]domain.Prop{}, p.Props...)
	out.Snippets = append([]domain.Snippet{}, p.Snippets...)
	return &out, nil
}

// ListAssets возвращает пул ассетов проекта.
func (r *MemoryProjectRepository) ListAssets(_ context.Context, projectID uuid.UUID) (domain.AssetSelection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[projectID]
	if !ok {
		return domain.AssetSelection{}, domain.ErrProjectNotFound
	}
	return domain.AssetSelection{
		Characters: append([]domain.Character{}, p.Characters...),
		Scenes:     append([]domain.Scene{}, p.Scenes...),
		Props:      append([]domain.Prop{}, p.Props...),
	}, nil
}

// AppendSnippets добавляет сниппеты к проекту.
func (r *MemoryProjectRepository) AppendSnippets(_ context.Context, projectID uuid.UUID, snippets []domain.Snippet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Snippets = append(p.Snippets, snippets...)
	p.UpdatedAt = time.Now().UTC()
	return nil
}
