package dashboard

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"contas/internal/core"
	"contas/internal/ledger"
)

// Gateway is the ledger surface the controller drives. Matches
// *ledger.Service.
type Gateway interface {
	Create(ctx context.Context, d ledger.Draft) (core.Transaction, error)
	List(ctx context.Context, typ core.Type) []core.Transaction
	Delete(ctx context.Context, id int64) error
	ToggleStatus(ctx context.Context, id int64) (core.Transaction, error)
}

// Controller holds the authoritative in-memory lists and applies user
// actions: effectful ones go through the gateway and mutate the lists only
// on success; filter changes are pure reducer applications.
type Controller struct {
	mu      sync.Mutex
	gateway Gateway
	state   State
}

func NewController(gateway Gateway, today core.Date) *Controller {
	return &Controller{gateway: gateway, state: NewState(today)}
}

// Load seeds both lists from the gateway. The two fetches run concurrently;
// neither can fail visibly (the gateway swallows list errors), so Load
// always succeeds and an unreachable store simply yields an empty dashboard.
func (c *Controller) Load(ctx context.Context) {
	var payables, receivables []core.Transaction

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payables = c.gateway.List(ctx, core.Payable)
		return nil
	})
	g.Go(func() error {
		receivables = c.gateway.List(ctx, core.Receivable)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Payables = payables
	c.state.Receivables = receivables
}

// Add validates the draft before touching the gateway: a malformed form
// never causes a create call. On success the created record is appended to
// the list matching its type.
func (c *Controller) Add(ctx context.Context, d ledger.Draft) (core.Transaction, error) {
	if _, err := ledger.ParseDraft(d); err != nil {
		return core.Transaction{}, err
	}

	created, err := c.gateway.Create(ctx, d)
	if err != nil {
		return core.Transaction{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if created.Type == core.Payable {
		c.state.Payables = append(c.state.Payables, created)
	} else {
		c.state.Receivables = append(c.state.Receivables, created)
	}
	return created, nil
}

// Delete removes the record from whichever list holds the id, but only
// after the gateway confirms the row is gone. Failure leaves state intact.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.gateway.Delete(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Payables = removeByID(c.state.Payables, id)
	c.state.Receivables = removeByID(c.state.Receivables, id)
	return nil
}

// TogglePaid flips the paid flag through the gateway and replaces the
// matching record in place, preserving its list membership by type.
func (c *Controller) TogglePaid(ctx context.Context, id int64) (core.Transaction, error) {
	updated, err := c.gateway.ToggleStatus(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if updated.Type == core.Payable {
		c.state.Payables = replaceByID(c.state.Payables, updated)
	} else {
		c.state.Receivables = replaceByID(c.state.Receivables, updated)
	}
	return updated, nil
}

// Apply runs a pure reducer against the current state. Used for every
// tab/filter change; never touches the gateway.
func (c *Controller) Apply(reduce func(State) State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = reduce(c.state)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View runs the aggregation pass over the current state.
func (c *Controller) View(today core.Date) ([]core.Transaction, core.Summary) {
	return c.Snapshot().View(today)
}

// removeByID and replaceByID never write through the input slice: snapshots
// taken by concurrent renders keep reading their own backing array, so
// mutations always build a fresh one.
func removeByID(txs []core.Transaction, id int64) []core.Transaction {
	for i, tx := range txs {
		if tx.ID == id {
			out := make([]core.Transaction, 0, len(txs)-1)
			out = append(out, txs[:i]...)
			return append(out, txs[i+1:]...)
		}
	}
	return txs
}

func replaceByID(txs []core.Transaction, updated core.Transaction) []core.Transaction {
	for i, tx := range txs {
		if tx.ID == updated.ID {
			out := make([]core.Transaction, len(txs))
			copy(out, txs)
			out[i] = updated
			return out
		}
	}
	return txs
}
