package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/metrics"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

// DefaultCapacity is the number of task records kept in memory.
const DefaultCapacity = 100

var _ repository.TaskRepository = (*TaskStore)(nil)

// TaskStore is a bounded in-memory task history. Once it holds more than
// capacity records, the oldest inserted records are evicted first.
type TaskStore struct {
	mu       sync.RWMutex
	capacity int
	tasks    map[string]*domain.Task
	order    []string
	logger   *zap.Logger
}

// NewTaskStore creates a store keeping at most capacity tasks.
func NewTaskStore(capacity int, logger *zap.Logger) *TaskStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TaskStore{
		capacity: capacity,
		tasks:    make(map[string]*domain.Task, capacity+1),
		order:    make([]string, 0, capacity+1),
		logger:   logger,
	}
}

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return domain.ErrTaskExists
	}
	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	s.evictLocked()
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update copies the record, applies fn to the copy and swaps it in, so a
// reader holding an earlier snapshot is never affected.
func (s *TaskStore) Update(ctx context.Context, id string, fn func(*domain.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return domain.ErrTaskTerminal
	}
	next := task.Clone()
	fn(next)
	next.ID = task.ID
	s.tasks[id] = next
	return nil
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// evictLocked drops the oldest records until the store is back at capacity.
// Records still owned by a worker are dropped too; the worker notices the
// missing record on its next update and abandons the result.
func (s *TaskStore) evictLocked() {
	excess := len(s.order) - s.capacity
	if excess <= 0 {
		return
	}
	for _, id := range s.order[:excess] {
		if task, ok := s.tasks[id]; ok && !task.Status.IsTerminal() {
			s.logger.Warn("Evicting task that has not finished",
				zap.String("task_id", id),
				zap.String("status", string(task.Status)),
			)
		}
		delete(s.tasks, id)
	}
	s.order = append(s.order[:0:0], s.order[excess:]...)

	metrics.TasksEvicted.Add(float64(excess))
	s.logger.Debug("Cleaned up old tasks", zap.Int("evicted", excess))
}
