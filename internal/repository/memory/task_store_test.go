package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

func newTask(id string) *domain.Task {
	return &domain.Task{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Status:     domain.StatusQueued,
		RepoURL:    "https://github.com/acme/widgets",
		Branch:     "main",
		ProjectKey: "acme_widgets",
	}
}

func TestTaskStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(10, zap.NewNop())

	require.NoError(t, s.Create(ctx, newTask("a")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
	assert.Equal(t, "https://github.com/acme/widgets", got.RepoURL)
	assert.Equal(t, "main", got.Branch)
	assert.Equal(t, "acme_widgets", got.ProjectKey)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(10, zap.NewNop())

	require.NoError(t, s.Create(ctx, newTask("a")))
	assert.ErrorIs(t, s.Create(ctx, newTask("a")), domain.ErrTaskExists)
}

func TestTaskStore_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(10, zap.NewNop())
	require.NoError(t, s.Create(ctx, newTask("a")))

	snap, err := s.Get(ctx, "a")
	require.NoError(t, err)
	snap.Status = domain.StatusCompleted

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, again.Status)
}

func TestTaskStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(10, zap.NewNop())
	require.NoError(t, s.Create(ctx, newTask("a")))

	url := "https://sonar.example/dashboard?id=acme_widgets"
	require.NoError(t, s.Update(ctx, "a", func(task *domain.Task) {
		task.Status = domain.StatusCompleted
		task.SonarURL = &url
		task.ID = "hijacked"
	}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.SonarURL)
	assert.Equal(t, url, *got.SonarURL)
	assert.Equal(t, "a", got.ID)

	err = s.Update(ctx, "a", func(task *domain.Task) { task.Status = domain.StatusRunning })
	assert.ErrorIs(t, err, domain.ErrTaskTerminal)

	err = s.Update(ctx, "missing", func(task *domain.Task) {})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStore_EvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(3, zap.NewNop())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, newTask(fmt.Sprintf("t%d", i))))
		assert.LessOrEqual(t, s.Len(), 3)
	}

	assert.Equal(t, 3, s.Len())
	for _, id := range []string{"t0", "t1"} {
		_, err := s.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound, "expected %s to be evicted", id)
	}
	for _, id := range []string{"t2", "t3", "t4"} {
		_, err := s.Get(ctx, id)
		assert.NoError(t, err, "expected %s to be kept", id)
	}
}

func TestTaskStore_EvictedTaskRejectsUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(1, zap.NewNop())

	require.NoError(t, s.Create(ctx, newTask("old")))
	require.NoError(t, s.Create(ctx, newTask("new")))

	err := s.Update(ctx, "old", func(task *domain.Task) { task.Status = domain.StatusRunning })
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStore_DefaultCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(0, zap.NewNop())
	for i := 0; i < DefaultCapacity+5; i++ {
		require.NoError(t, s.Create(ctx, newTask(fmt.Sprintf("t%d", i))))
	}
	assert.Equal(t, DefaultCapacity, s.Len())
}

// Readers racing a multi-field writer must see either the old or the new record.
func TestTaskStore_NoTornReads(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(10, zap.NewNop())
	require.NoError(t, s.Create(ctx, newTask("a")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		url := "https://sonar.example/dashboard?id=acme_widgets"
		_ = s.Update(ctx, "a", func(task *domain.Task) {
			task.SonarURL = &url
			task.Status = domain.StatusGeneratingScreenshot
		})
	}()

	for i := 0; i < 1000; i++ {
		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		if got.Status == domain.StatusGeneratingScreenshot {
			require.NotNil(t, got.SonarURL)
		} else {
			require.Nil(t, got.SonarURL)
		}
	}
	wg.Wait()
}
