package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/storage"
)

type fakeSheet struct {
	rows    []core.Transaction
	failing bool
}

func (f *fakeSheet) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if f.failing {
		return "", errors.New("sheet unavailable")
	}
	f.rows = append(f.rows, tx)
	return "Transações!A2:J2", nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "contas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Name:        "Conta de luz",
		Date:        core.NewDate(2025, 5, 10),
		Description: "Energia do escritório",
		Category:    "Luz",
		Method:      core.MethodBoleto,
		Installment: "1/1",
		Amount:      core.Money{Cents: 15000},
		Type:        core.Payable,
	})
	require.NoError(t, err)
	return tx
}

func TestHandleTransactionEventMirrorsCreate(t *testing.T) {
	repo := newTestRepo(t)
	sheet := &fakeSheet{}
	w := NewMirrorWorker(repo, sheet, 10)

	tx := seedTransaction(t, repo)

	err := w.HandleTransactionEvent(context.Background(), amqp.NewTransactionEventMessage(tx.ID, amqp.ActionCreated))
	require.NoError(t, err)

	require.Len(t, sheet.rows, 1)
	assert.Equal(t, tx.ID, sheet.rows[0].ID)

	pending, err := repo.ListUnsynced(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHandleTransactionEventIgnoresNonCreate(t *testing.T) {
	repo := newTestRepo(t)
	sheet := &fakeSheet{}
	w := NewMirrorWorker(repo, sheet, 10)

	tx := seedTransaction(t, repo)

	require.NoError(t, w.HandleTransactionEvent(context.Background(), amqp.NewTransactionEventMessage(tx.ID, amqp.ActionToggled)))
	require.NoError(t, w.HandleTransactionEvent(context.Background(), amqp.NewTransactionEventMessage(tx.ID, amqp.ActionDeleted)))

	assert.Empty(t, sheet.rows)
}

func TestHandleTransactionEventMissingRow(t *testing.T) {
	repo := newTestRepo(t)
	sheet := &fakeSheet{}
	w := NewMirrorWorker(repo, sheet, 10)

	// Created then deleted before the consumer caught up.
	err := w.HandleTransactionEvent(context.Background(), amqp.NewTransactionEventMessage(999, amqp.ActionCreated))
	require.NoError(t, err)
	assert.Empty(t, sheet.rows)
}

func TestProcessPendingMirrorsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	sheet := &fakeSheet{}
	w := NewMirrorWorker(repo, sheet, 10)

	first := seedTransaction(t, repo)
	second := seedTransaction(t, repo)

	require.NoError(t, w.ProcessPending(context.Background()))
	require.Len(t, sheet.rows, 2)
	assert.Equal(t, first.ID, sheet.rows[0].ID)
	assert.Equal(t, second.ID, sheet.rows[1].ID)

	// A second pass finds nothing left.
	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Len(t, sheet.rows, 2)
}

func TestProcessPendingReportsFailures(t *testing.T) {
	repo := newTestRepo(t)
	sheet := &fakeSheet{failing: true}
	w := NewMirrorWorker(repo, sheet, 10)

	seedTransaction(t, repo)

	err := w.ProcessPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mirror")

	// Still pending for the next pass.
	pending, listErr := repo.ListUnsynced(context.Background(), 10)
	require.NoError(t, listErr)
	assert.Len(t, pending, 1)
}
