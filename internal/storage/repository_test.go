package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "contas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testTransaction(iso string, typ core.Type) core.Transaction {
	d, _ := core.ParseDate(iso)
	category := "Luz"
	if typ == core.Receivable {
		category = "Ações Judiciais"
	}
	return core.Transaction{
		Name:        "teste",
		Date:        d,
		Description: "descrição",
		Category:    category,
		Method:      core.MethodPix,
		Installment: "1/1",
		Amount:      core.Money{Cents: 35000},
		Type:        typ,
	}
}

func TestCategoriesSeeded(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	c, err := repo.FindCategory(ctx, "Luz")
	require.NoError(t, err)
	assert.Equal(t, "fixed", c.Kind)

	c, err = repo.FindCategory(ctx, "Equipamento")
	require.NoError(t, err)
	assert.Equal(t, "adverse", c.Kind)

	c, err = repo.FindCategory(ctx, "Processo Dpvat")
	require.NoError(t, err)
	assert.Equal(t, "revenue", c.Kind)

	_, err = repo.FindCategory(ctx, "Inexistente")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCreateAndGetTransaction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, testTransaction("2025-05-12", core.Payable))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "2025-05-12", got.Date.ISO())
	assert.Equal(t, int64(35000), got.Amount.Cents)
	assert.Equal(t, core.Payable, got.Type)
	assert.False(t, got.Paid)
}

func TestListTransactionsOrderAndFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, in := range []struct {
		iso string
		typ core.Type
	}{
		{"2025-05-20", core.Payable},
		{"2025-05-01", core.Receivable},
		{"2025-05-10", core.Payable},
	} {
		_, err := repo.CreateTransaction(ctx, testTransaction(in.iso, in.typ))
		require.NoError(t, err)
	}

	all, err := repo.ListTransactions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Date.ISO(), all[i].Date.ISO())
	}

	pays, err := repo.ListTransactions(ctx, core.Payable)
	require.NoError(t, err)
	require.Len(t, pays, 2)
	for _, tx := range pays {
		assert.Equal(t, core.Payable, tx.Type)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, testTransaction("2025-05-12", core.Payable))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, created.ID))

	_, err = repo.GetTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	err = repo.DeleteTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestSetPaid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, testTransaction("2025-05-12", core.Receivable))
	require.NoError(t, err)

	updated, err := repo.SetPaid(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Paid)

	updated, err = repo.SetPaid(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Paid)

	_, err = repo.SetPaid(ctx, 9999, true)
	assert.True(t, errors.Is(err, ErrTransactionNotFound))
}

func TestUnsyncedLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.CreateTransaction(ctx, testTransaction("2025-05-12", core.Payable))
	require.NoError(t, err)
	second, err := repo.CreateTransaction(ctx, testTransaction("2025-05-13", core.Payable))
	require.NoError(t, err)

	pending, err := repo.ListUnsynced(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, repo.MarkSynced(ctx, first.ID))

	pending, err = repo.ListUnsynced(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
