package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"contas/internal/core"
)

var today = core.NewDate(2025, 5, 20)

func TestNewStateDefaults(t *testing.T) {
	s := NewState(today)
	assert.Equal(t, core.TabPayable, s.Tab)
	assert.Equal(t, 2025, s.ShownYear)
	assert.Equal(t, 5, s.ShownMonth)
	assert.False(t, s.ShowAllMonths)
	assert.True(t, s.From.IsZero())
}

func TestCategoryReducersAreMutuallyExclusive(t *testing.T) {
	s := NewState(today).WithFixedCategory("Salarios")
	assert.Equal(t, "Salarios", s.FixedCategory)

	// Selecting an adverse category clears the previously selected fixed one.
	s = s.WithAdverseCategory("Equipamento")
	assert.Equal(t, "Equipamento", s.AdverseCategory)
	assert.Empty(t, s.FixedCategory)
	assert.Empty(t, s.RevenueCategory)

	s = s.WithRevenueCategory("Ações Judiciais")
	assert.Equal(t, "Ações Judiciais", s.RevenueCategory)
	assert.Empty(t, s.FixedCategory)
	assert.Empty(t, s.AdverseCategory)
}

func TestResetFilters(t *testing.T) {
	s := NewState(today).
		WithTab(core.TabAll).
		WithRange(core.NewDate(2025, 1, 1), core.NewDate(2025, 3, 31)).
		WithShowAllMonths(true).
		WithFixedCategory("Luz").
		WithMonthShift(-3)

	s = s.ResetFilters(today)
	assert.True(t, s.From.IsZero())
	assert.True(t, s.To.IsZero())
	assert.Empty(t, s.FixedCategory)
	assert.Empty(t, s.AdverseCategory)
	assert.Empty(t, s.RevenueCategory)
	assert.False(t, s.ShowAllMonths)
	assert.Equal(t, 2025, s.ShownYear)
	assert.Equal(t, 5, s.ShownMonth)
	// Reset touches filters only, not the tab.
	assert.Equal(t, core.TabAll, s.Tab)
}

func TestMonthShiftAcrossYears(t *testing.T) {
	s := NewState(core.NewDate(2025, 1, 15))
	s = s.WithMonthShift(-1)
	assert.Equal(t, 2024, s.ShownYear)
	assert.Equal(t, 12, s.ShownMonth)

	s = s.WithMonthShift(13)
	assert.Equal(t, 2026, s.ShownYear)
	assert.Equal(t, 1, s.ShownMonth)
}

func TestStateView(t *testing.T) {
	d, _ := core.ParseDate("2025-05-12")
	s := NewState(today)
	s.Payables = []core.Transaction{{
		ID: 1, Date: d, Description: "luz", Category: "Luz",
		Method: core.MethodPix, Installment: "1/1",
		Amount: core.Money{Cents: 35000}, Type: core.Payable,
	}}

	rows, summary := s.View(today)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(35000), summary.Overdue.Cents)
	assert.Equal(t, int64(0), summary.Due.Cents)
}
