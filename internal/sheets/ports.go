package sheets

import (
	"context"

	"contas/internal/core"
)

// Ports for outbound mirror adapters.
type (
	// RowWriter appends one transaction to the external ledger mirror
	// and returns a reference to the written row.
	RowWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
