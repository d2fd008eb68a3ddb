package core

import (
	"sort"
	"strings"
)

// Tabs of the dashboard.
const (
	TabPayable    Tab = "pagar"
	TabReceivable Tab = "receber"
	TabAll        Tab = "all"
)

type (
	Tab string

	// Filter is the full filter state the dashboard applies to the ledger.
	// Date selection priority: an explicit range wins over a single day,
	// which wins over the shown month; ShowAllMonths disables the month
	// restriction when no explicit date is selected.
	Filter struct {
		Tab           Tab
		From, To      Date // range when both set, single day when only From
		ShownYear     int
		ShownMonth    int // 1-12
		ShowAllMonths bool

		// At most one of the three is non-empty (reducers keep them
		// mutually exclusive).
		FixedCategory   string
		AdverseCategory string
		RevenueCategory string
	}

	// Summary is the reduction of the visible list. All amounts are
	// magnitudes; Inflow and Outflow are only meaningful on TabAll.
	Summary struct {
		Paid    Money
		Due     Money
		Overdue Money
		Total   Money
		Inflow  Money
		Outflow Money
	}
)

// SelectVisible filters and sorts the transactions the dashboard shows for
// the given filter state. It is pure and never reads the clock, so the same
// inputs always produce the same view.
func SelectVisible(payables, receivables []Transaction, f Filter) []Transaction {
	var base []Transaction
	switch f.Tab {
	case TabPayable:
		base = payables
	case TabReceivable:
		base = receivables
	default:
		base = make([]Transaction, 0, len(payables)+len(receivables))
		base = append(base, payables...)
		base = append(base, receivables...)
	}

	visible := make([]Transaction, 0, len(base))
	for _, tx := range base {
		if !f.matchesDate(tx.Date) {
			continue
		}
		if !f.matchesCategory(tx) {
			continue
		}
		visible = append(visible, tx)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return strings.Compare(visible[i].Date.ISO(), visible[j].Date.ISO()) < 0
	})
	return visible
}

func (f Filter) matchesDate(d Date) bool {
	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		return d.Within(f.From, f.To)
	case !f.From.IsZero():
		return d.Equal(f.From)
	case !f.ShowAllMonths:
		return d.SameMonth(f.ShownYear, f.ShownMonth)
	default:
		return true
	}
}

func (f Filter) matchesCategory(tx Transaction) bool {
	// Expense filters never restrict the receivable-only tab, and the
	// revenue filter never restricts the payable-only tab.
	if f.FixedCategory != "" && f.Tab != TabReceivable {
		return tx.Category == f.FixedCategory
	}
	if f.AdverseCategory != "" && f.Tab != TabReceivable {
		return tx.Category == f.AdverseCategory
	}
	if f.RevenueCategory != "" && f.Tab != TabPayable {
		return tx.Category == f.RevenueCategory
	}
	return true
}

// Summarize reduces the visible list into the dashboard totals.
//
// Each record contributes its magnitude to exactly one of paid, overdue or
// due (overdue means unpaid and dated strictly before today), and always to
// the total. Inflow and outflow are computed only on the all-accounts tab:
// a record is eligible when it is paid or not yet past due.
func Summarize(visible []Transaction, tab Tab, today Date) Summary {
	var s Summary
	for _, tx := range visible {
		v := tx.Amount
		switch {
		case tx.Paid:
			s.Paid = s.Paid.Add(v)
		case tx.Date.Before(today):
			s.Overdue = s.Overdue.Add(v)
		default:
			s.Due = s.Due.Add(v)
		}
		s.Total = s.Total.Add(v)

		if tab != TabAll {
			continue
		}
		if !tx.Paid && tx.Date.Before(today) {
			continue
		}
		if tx.Type == Receivable {
			s.Inflow = s.Inflow.Add(v)
		} else {
			s.Outflow = s.Outflow.Add(v)
		}
	}
	return s
}

// View runs the full aggregation pass: selection, sorting and reduction.
func View(payables, receivables []Transaction, f Filter, today Date) ([]Transaction, Summary) {
	visible := SelectVisible(payables, receivables, f)
	return visible, Summarize(visible, f.Tab, today)
}
