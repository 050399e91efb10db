package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.AuditRepository {
	t.Helper()
	repo, backend, err := NewMemoryAuditRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func TestAuditRepository_AppendAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := &core.AuditEntry{
		RunID:   "run-a",
		Chunk:   core.ChunkRef{File: "main.go", Index: 0},
		Attempt: 1,
		Outcome: core.OutcomeSuccess,
		Text:    `{"overview":"o"}`,
	}

	added, err := repo.Append(ctx, entry)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id, "ID assigned from sequence")
	assert.False(t, added[0].Timestamp.IsZero(), "timestamp set")

	got, err := repo.Get(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, entry.RunID, got.RunID)
	assert.Equal(t, entry.Chunk, got.Chunk)
	assert.Equal(t, entry.Text, got.Text)
	assert.Equal(t, core.OutcomeSuccess, got.Outcome)
	assert.WithinDuration(t, added[0].Timestamp, got.Timestamp, time.Microsecond)
}

func TestAuditRepository_GetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAuditRepository_ListByRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := repo.Append(ctx, &core.AuditEntry{
			RunID:   "run1",
			Chunk:   core.ChunkRef{File: "a.py", Index: 0},
			Attempt: i,
			Outcome: core.OutcomeTransient,
		})
		require.NoError(t, err)
	}
	_, err := repo.Append(ctx, &core.AuditEntry{RunID: "run10", Attempt: 1, Outcome: core.OutcomeSuccess})
	require.NoError(t, err)

	entries, err := repo.ListByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, entries, 3, "run10 not matched by run1 prefix")
	for i, e := range entries {
		assert.Equal(t, i+1, e.Attempt, "append order")
	}

	entries, err = repo.ListByRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditRepository_ListByChunk(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx,
		&core.AuditEntry{RunID: "r", Chunk: core.ChunkRef{File: "a.go", Index: 0}, Attempt: 1},
		&core.AuditEntry{RunID: "r", Chunk: core.ChunkRef{File: "a.go", Index: 1}, Attempt: 1},
		&core.AuditEntry{RunID: "r", Chunk: core.ChunkRef{File: "a.go", Index: 1}, Attempt: 2},
		&core.AuditEntry{RunID: "r", Chunk: core.ChunkRef{File: "b.go", Index: 1}, Attempt: 1},
	)
	require.NoError(t, err)

	entries, err := repo.ListByChunk(ctx, "r", core.ChunkRef{File: "a.go", Index: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Attempt)
	assert.Equal(t, 2, entries[1].Attempt)
}

func TestAuditRepository_Runs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, run := range []string{"b", "a", "b", "c"} {
		_, err := repo.Append(ctx, &core.AuditEntry{RunID: run})
		require.NoError(t, err)
	}

	runs, err := repo.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, runs)
}

func TestAuditRepository_ConcurrentAppend(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := repo.Append(ctx, &core.AuditEntry{
					RunID: "concurrent",
					Chunk: core.ChunkRef{File: fmt.Sprintf("f%d.go", w), Index: i},
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	entries, err := repo.ListByRun(ctx, "concurrent")
	require.NoError(t, err)
	assert.Len(t, entries, workers*perWorker)

	ids := make(map[core.ID]struct{}, len(entries))
	for _, e := range entries {
		ids[e.Id] = struct{}{}
	}
	assert.Len(t, ids, workers*perWorker, "IDs unique")
}

func TestAuditRepository_CanceledContext(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Append(ctx, &core.AuditEntry{RunID: "r"})
	assert.ErrorIs(t, err, context.Canceled)
}
