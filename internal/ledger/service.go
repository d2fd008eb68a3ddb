// Package ledger implements the gateway the dashboard talks to: create,
// list, delete and toggle-paid against the transaction store, plus event
// publication for the mirror worker.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/storage"
)

type (
	// Store is the persistence surface the service needs.
	Store interface {
		FindCategory(ctx context.Context, name string) (storage.Category, error)
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		ListTransactions(ctx context.Context, typ core.Type) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
		SetPaid(ctx context.Context, id int64, paid bool) (core.Transaction, error)
	}

	// EventPublisher fans ledger changes out to the mirror worker.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, id int64, action string) error
	}

	// Draft carries the raw create form fields before validation. Value is
	// the amount as typed by the user; the sign comes from Type, so a bare
	// magnitude is expected.
	Draft struct {
		Name        string
		Date        string
		Description string
		Category    string
		Method      string
		Installment string
		Paid        bool
		Value       string
		Type        string
	}

	// Service wires the store and the optional event publisher together.
	Service struct {
		store  Store
		events EventPublisher
	}
)

func NewService(store Store, events EventPublisher) *Service {
	return &Service{store: store, events: events}
}

// ParseDraft validates the raw form fields and builds the transaction to
// persist. The amount must parse to a positive decimal and every field must
// be present; category membership is checked later, against the store.
func ParseDraft(d Draft) (core.Transaction, error) {
	typ, err := core.ParseType(d.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(d.Value)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Name:        d.Name,
		Date:        date,
		Description: d.Description,
		Category:    d.Category,
		Method:      d.Method,
		Installment: d.Installment,
		Paid:        d.Paid,
		Amount:      core.Money{Cents: cents},
		Type:        typ,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Create validates the draft, resolves its category by name and persists the
// transaction. A publish failure is logged and never fails the request: the
// row is already durable and the worker catches up on unsynced rows.
func (s *Service) Create(ctx context.Context, d Draft) (core.Transaction, error) {
	tx, err := ParseDraft(d)
	if err != nil {
		return core.Transaction{}, err
	}

	if _, err := s.store.FindCategory(ctx, tx.Category); err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category %q: %w", tx.Category, err)
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, created.ID, amqp.ActionCreated)
	return created, nil
}

// List returns transactions ordered by date, optionally restricted to one
// type. Query failures are swallowed: the caller sees an empty list, which
// is indistinguishable from a legitimately empty ledger.
func (s *Service) List(ctx context.Context, typ core.Type) []core.Transaction {
	txs, err := s.store.ListTransactions(ctx, typ)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list transactions", "error", err, "type", string(typ))
		return []core.Transaction{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs
}

// Delete removes a transaction. Missing ids surface as
// storage.ErrTransactionNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.publish(ctx, id, amqp.ActionDeleted)
	return nil
}

// ToggleStatus flips the paid flag and returns the updated transaction.
// This is a read-then-write with no version check: two concurrent toggles
// on the same id are last-write-wins.
func (s *Service) ToggleStatus(ctx context.Context, id int64) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("toggle transaction %d: %w", id, err)
	}

	updated, err := s.store.SetPaid(ctx, id, !current.Paid)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("toggle transaction %d: %w", id, err)
	}

	s.publish(ctx, id, amqp.ActionToggled)
	return updated, nil
}

func (s *Service) publish(ctx context.Context, id int64, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"error", err, "id", id, "action", action)
	}
}
