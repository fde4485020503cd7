package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog/sqlite"
)

func openRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	started := sagalog.NewEntry(ctx, "ORD-1", sagalog.StatusStarted, "")
	started.Payload = `{"orderId":"ORD-1"}`
	failed := sagalog.NewEntry(ctx, "ORD-1", sagalog.StatusFailed, "Payment_Authorization_Step")
	failed.Errors = []string{"declined", "compensation of Inventory_Reservation_Step failed: timeout"}
	failed.TraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	require.NoError(t, repo.Append(ctx, started))
	require.NoError(t, repo.Append(ctx, failed))
	require.NoError(t, repo.Append(ctx, sagalog.NewEntry(ctx, "ORD-2", sagalog.StatusStarted, "")))

	latest, err := repo.Latest(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusFailed, latest.Status)
	assert.Equal(t, "Payment_Authorization_Step", latest.Step)
	assert.Equal(t, failed.Errors, latest.Errors)
	assert.Equal(t, failed.TraceID, latest.TraceID)
	assert.Empty(t, latest.Payload)
	assert.WithinDuration(t, failed.At, latest.At, time.Microsecond)

	history, err := repo.History(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, `{"orderId":"ORD-1"}`, history[0].Payload)
	assert.Nil(t, history[0].Errors)
}

func TestRepository_UnknownSaga(t *testing.T) {
	repo := openRepo(t)

	_, err := repo.Latest(context.Background(), "nope")
	assert.ErrorIs(t, err, sagalog.ErrNotFound)

	history, err := repo.History(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saga.db")

	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, sagalog.NewEntry(ctx, "ORD-1", sagalog.StatusCompleted, "Commit_Order_Step")))
	require.NoError(t, repo.Close())

	again, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })
	latest, err := again.Latest(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusCompleted, latest.Status)
}
