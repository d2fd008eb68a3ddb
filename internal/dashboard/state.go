// Package dashboard owns the client-side state of the finance dashboard:
// the active tab, date and category filters, and the authoritative in-memory
// transaction lists seeded from the ledger gateway. Filter changes are pure
// reducers over State; the aggregation pass in internal/core consumes the
// resulting filter on every render.
package dashboard

import "contas/internal/core"

// State is the full dashboard state. Reducers take a State by value and
// return the next one, so the aggregation logic stays testable without any
// rendering machinery.
type State struct {
	Tab           core.Tab
	From, To      core.Date // explicit range; single day when only From set
	ShownYear     int
	ShownMonth    int
	ShowAllMonths bool

	FixedCategory   string
	AdverseCategory string
	RevenueCategory string

	Payables    []core.Transaction
	Receivables []core.Transaction
}

// NewState returns the default view: payables tab, current month, no
// explicit date or category filters.
func NewState(today core.Date) State {
	return State{
		Tab:        core.TabPayable,
		ShownYear:  today.Year(),
		ShownMonth: int(today.Month()),
	}
}

// WithTab switches the active tab. Filters are kept: the original view lets
// a date range survive a tab switch.
func (s State) WithTab(tab core.Tab) State {
	s.Tab = tab
	return s
}

// WithRange selects an explicit date range (to zero means a single day).
func (s State) WithRange(from, to core.Date) State {
	s.From, s.To = from, to
	return s
}

// WithShowAllMonths toggles the month restriction used when no explicit
// date is selected.
func (s State) WithShowAllMonths(on bool) State {
	s.ShowAllMonths = on
	return s
}

// WithMonthShift moves the displayed month by delta months.
func (s State) WithMonthShift(delta int) State {
	m := s.ShownMonth + delta
	y := s.ShownYear
	for m < 1 {
		m += 12
		y--
	}
	for m > 12 {
		m -= 12
		y++
	}
	s.ShownYear, s.ShownMonth = y, m
	return s
}

// The three category reducers are mutually exclusive: selecting a filter in
// one group clears the other two, last selection wins.

func (s State) WithFixedCategory(name string) State {
	s.FixedCategory = name
	s.AdverseCategory = ""
	s.RevenueCategory = ""
	return s
}

func (s State) WithAdverseCategory(name string) State {
	s.AdverseCategory = name
	s.FixedCategory = ""
	s.RevenueCategory = ""
	return s
}

func (s State) WithRevenueCategory(name string) State {
	s.RevenueCategory = name
	s.FixedCategory = ""
	s.AdverseCategory = ""
	return s
}

// ResetFilters clears the date range, all three category filters and the
// show-all-months flag, returning to the default current-month view.
func (s State) ResetFilters(today core.Date) State {
	s.From, s.To = core.Date{}, core.Date{}
	s.FixedCategory, s.AdverseCategory, s.RevenueCategory = "", "", ""
	s.ShowAllMonths = false
	s.ShownYear, s.ShownMonth = today.Year(), int(today.Month())
	return s
}

// Filter projects the state into the aggregation filter.
func (s State) Filter() core.Filter {
	return core.Filter{
		Tab:             s.Tab,
		From:            s.From,
		To:              s.To,
		ShownYear:       s.ShownYear,
		ShownMonth:      s.ShownMonth,
		ShowAllMonths:   s.ShowAllMonths,
		FixedCategory:   s.FixedCategory,
		AdverseCategory: s.AdverseCategory,
		RevenueCategory: s.RevenueCategory,
	}
}

// View runs the aggregation pass over the current lists.
func (s State) View(today core.Date) ([]core.Transaction, core.Summary) {
	return core.View(s.Payables, s.Receivables, s.Filter(), today)
}
