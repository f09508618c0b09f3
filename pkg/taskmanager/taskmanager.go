package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status представляет статус асинхронной задачи.
type Status string

// Возможные статусы задач
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Func представляет функцию, выполняемую в задаче. Контекст отменяется
// при отмене задачи или остановке менеджера.
type Func func(ctx context.Context) (interface{}, error)

// Notifier отправляет обновления статуса задачи владельцу (сессии мастера).
type Notifier interface {
	SendToSession(sessionID, messageType string, payload interface{})
}

// Task представляет асинхронную задачу генерации.
type Task struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Stage     string      `json:"stage"`
	Status    Status      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	cancel context.CancelFunc
}

// Manager управляет асинхронными задачами генерации. Все задачи живут
// в памяти процесса; завершенные удаляются периодической очисткой.
type Manager struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*Task
	maxTasks int
	closing  chan struct{}
	wg       sync.WaitGroup
	notifier Notifier
}

// New создает новый менеджер задач. maxTasks ограничивает количество
// одновременно активных задач во всем процессе.
func New(maxTasks int) *Manager {
	if maxTasks <= 0 {
		maxTasks = 10
	}
	return &Manager{
		tasks:    make(map[uuid.UUID]*Task),
		maxTasks: maxTasks,
		closing:  make(chan struct{}),
	}
}

// SetNotifier устанавливает нотификатор обновлений статуса.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// Submit создает и запускает новую задачу от имени владельца ownerID
// для этапа stage. Возвращает ID задачи.
func (m *Manager) Submit(ctx context.Context, ownerID, stage string, fn Func) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closing:
		return uuid.Nil, errors.New("task manager is shutting down")
	default:
	}

	active := 0
	for _, t := range m.tasks {
		if t.Status == StatusPending || t.Status == StatusRunning {
			active++
		}
	}
	if active >= m.maxTasks {
		return uuid.Nil, errors.New("too many active tasks")
	}

	// Задача живет дольше HTTP-запроса, поэтому получает независимый контекст;
	// логгер переносим из контекста вызова.
	taskCtx, cancel := context.WithCancel(log.Ctx(ctx).WithContext(context.Background()))

	task := &Task{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Stage:     stage,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		cancel:    cancel,
	}
	m.tasks[task.ID] = task

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(taskCtx, task, fn)
	}()

	return task.ID, nil
}

// run выполняет задачу и обновляет её статус.
func (m *Manager) run(ctx context.Context, task *Task, fn Func) {
	m.update(task, StatusRunning, "task started", nil)

	result, err := fn(ctx)

	if ctx.Err() != nil {
		log.Ctx(ctx).Info().Str("taskID", task.ID.String()).Str("stage", task.Stage).Msg("Контекст задачи отменен")
		m.update(task, StatusCancelled, "task cancelled", nil)
		return
	}

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("taskID", task.ID.String()).Str("stage", task.Stage).Msg("Задача завершилась с ошибкой")
		m.update(task, StatusFailed, err.Error(), nil)
		return
	}

	m.update(task, StatusCompleted, "task completed", result)
}

// update обновляет статус задачи и уведомляет владельца.
func (m *Manager) update(task *Task, status Status, message string, result interface{}) {
	m.mu.Lock()
	task.Status = status
	task.Message = message
	if result != nil {
		task.Result = result
	}
	task.UpdatedAt = time.Now()
	notifier := m.notifier
	snapshot := *task
	m.mu.Unlock()

	if notifier != nil {
		notifier.SendToSession(snapshot.OwnerID, "task_update", map[string]interface{}{
			"task_id":    snapshot.ID,
			"stage":      snapshot.Stage,
			"status":     snapshot.Status,
			"message":    snapshot.Message,
			"updated_at": snapshot.UpdatedAt,
		})
	}
}

// Get возвращает копию задачи по ID.
func (m *Manager) Get(taskID uuid.UUID) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("task %s not found", taskID)
	}
	return *task, nil
}

// Cancel отменяет выполнение задачи.
func (m *Manager) Cancel(taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if task.Status != StatusPending && task.Status != StatusRunning {
		return fmt.Errorf("cannot cancel task in status %s", task.Status)
	}
	task.cancel()
	return nil
}

// CancelOwned отменяет все активные задачи владельца. Возвращает количество
// отмененных задач. Используется при отмене сессии мастера.
func (m *Manager) CancelOwned(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancelled := 0
	for _, task := range m.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if task.Status == StatusPending || task.Status == StatusRunning {
			task.cancel()
			cancelled++
		}
	}
	return cancelled
}

// Cleanup удаляет завершенные задачи старше указанного возраста.
func (m *Manager) Cleanup(age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, task := range m.tasks {
		done := task.Status == StatusCompleted || task.Status == StatusFailed || task.Status == StatusCancelled
		if done && now.Sub(task.UpdatedAt) > age {
			delete(m.tasks, id)
		}
	}
}

// Shutdown отменяет прием новых задач и ожидает завершения активных
// с учетом таймаута контекста.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.closing)

	m.mu.Lock()
	for _, task := range m.tasks {
		if task.Status == StatusPending || task.Status == StatusRunning {
			task.cancel()
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for tasks to finish")
	}
}
