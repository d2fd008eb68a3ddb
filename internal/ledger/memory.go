package ledger

import (
	"context"
	"sync"

	"contas/internal/core"
	"contas/internal/storage"
)

// MemoryStore is an in-memory Store used by tests and as a fixture-seeded
// fallback when no database is wanted. Categories come from the core
// vocabularies, mirroring the seeded categories table.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
	cats   map[string]storage.Category
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	cats := make(map[string]storage.Category)
	id := int64(1)
	add := func(names []string, kind string) {
		for _, n := range names {
			cats[n] = storage.Category{ID: id, Name: n, Kind: kind}
			id++
		}
	}
	add(core.FixedExpenses, "fixed")
	add(core.AdverseExpenses, "adverse")
	add(core.Revenues, "revenue")
	return &MemoryStore{nextID: 1, cats: cats}
}

func (m *MemoryStore) FindCategory(_ context.Context, name string) (storage.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cats[name]
	if !ok {
		return storage.Category{}, storage.ErrCategoryNotFound
	}
	return c, nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = m.nextID
	m.nextID++
	m.items = append(m.items, tx)
	return tx, nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, typ core.Type) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, 0, len(m.items))
	for _, tx := range m.items {
		if typ == "" || tx.Type == typ {
			out = append(out, tx)
		}
	}
	// Insertion order is not date order; match the repository contract.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Date.ISO() < out[j-1].Date.ISO(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.items {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, storage.ErrTransactionNotFound
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.items {
		if tx.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrTransactionNotFound
}

func (m *MemoryStore) SetPaid(_ context.Context, id int64, paid bool) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Paid = paid
			return m.items[i], nil
		}
	}
	return core.Transaction{}, storage.ErrTransactionNotFound
}
