package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/sheets"
	"contas/internal/storage"
)

// MirrorWorker copies transactions from SQLite into the Google Sheets
// backup ledger. The sheet is an append only journal: deletes and
// status toggles are recorded locally only.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	sheet     sheets.RowWriter
	batchSize int
}

func NewMirrorWorker(storage *storage.SQLiteRepository, sheet sheets.RowWriter, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		sheet:     sheet,
		batchSize: batchSize,
	}
}

// HandleTransactionEvent processes a single transaction event from AMQP.
func (w *MirrorWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", msg.ID,
		"action", msg.Action)

	if msg.Action != amqp.ActionCreated {
		// The mirror only journals new rows.
		slog.DebugContext(ctx, "Ignoring non-create event", "id", msg.ID, "action", msg.Action)
		return nil
	}

	tx, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			// Deleted before the event was consumed. Nothing to mirror.
			slog.WarnContext(ctx, "Transaction gone before mirroring", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.mirrorOne(ctx, tx.ID); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}
	return nil
}

// ProcessPending mirrors any transactions that have not reached the
// sheet yet. This is the backup path for lost AMQP messages.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unsynced transactions", "count", len(pending))

	var failed int
	for _, tx := range pending {
		if err := w.mirrorOne(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction", "id", tx.ID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to mirror %d of %d transactions", failed, len(pending))
	}
	return nil
}

// StartupCheck runs one pending pass so rows created while the worker
// was down still reach the sheet.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup mirror check")
	return w.ProcessPending(ctx)
}

func (w *MirrorWorker) mirrorOne(ctx context.Context, id int64) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.sheet.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The row is on the sheet but the flag was not recorded. The
		// next pending pass will append a duplicate; favor duplicates
		// over silent loss.
		return fmt.Errorf("mark synced (row written at %s): %w", ref, err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"id", id,
		"range", ref)
	return nil
}
