package work

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpile/internal/domain"
	"workpile/internal/queue"
	"workpile/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&mode=rwc", path))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, store.EnsureSchema(db))
	t.Cleanup(func() { _ = db.Close() })
	return store.NewOutboxStore(db)
}

func TestSubmitPersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q := queue.New(16)
	svc := NewService(st, q)

	id, err := svc.Submit(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "wrk_"))

	pending, err := st.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "abc", got.Data)
}

// Durability precedes visibility: a submission whose enqueue is
// skipped still succeeds and still shows up in the pending set.
func TestSubmitSucceedsWhenQueueFull(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q := queue.New(1)
	svc := NewService(st, q)

	require.True(t, q.TryEnqueue(domain.NewWork("filler")))

	id, err := svc.Submit(ctx, "deferred")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := st.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, 1, q.Len(), "full queue is left alone")
}

type brokenStore struct{ store.Store }

func (brokenStore) SaveRequested(ctx context.Context, w domain.Work) error {
	return fmt.Errorf("no space left on device")
}

func TestSubmitPropagatesPersistFailure(t *testing.T) {
	q := queue.New(16)
	svc := NewService(brokenStore{}, q)

	id, err := svc.Submit(context.Background(), "doomed")
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 0, q.Len(), "nothing may be enqueued when persistence fails")
}
