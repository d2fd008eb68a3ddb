package http

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"contas/internal/core"
	"contas/internal/dashboard"
	"contas/internal/ledger"
	applog "contas/internal/log"
	"contas/internal/storage"
)

// transactionRow is one rendered table line.
type transactionRow struct {
	ID          int64
	Name        string
	Date        string
	Description string
	Category    string
	Method      string
	Installment string
	Paid        bool
	Amount      string // signed BRL, e.g. "-R$ 350,00"
	Overdue     bool
}

// dashboardData feeds the dashboard partial template.
type dashboardData struct {
	Tab           string
	MonthLabel    string
	ShowAllMonths bool
	From, To      string

	FixedCategory   string
	AdverseCategory string
	RevenueCategory string

	FixedCategories   []string
	AdverseCategories []string
	RevenueCategories []string

	Rows []transactionRow

	Paid    string
	Due     string
	Overdue string
	Total   string
	Inflow  string
	Outflow string

	// Inflow and Outflow cards only make sense on the combined tab.
	ShowFlows bool
}

// indexData feeds the full page template.
type indexData struct {
	Dashboard dashboardData
	Methods   []string
	Today     string
}

// buildDashboardData projects the controller state into template data.
func (s *Server) buildDashboardData(today core.Date) dashboardData {
	state := s.controller.Snapshot()
	visible, summary := s.controller.View(today)

	rows := make([]transactionRow, 0, len(visible))
	for _, tx := range visible {
		rows = append(rows, transactionRow{
			ID:          tx.ID,
			Name:        tx.Name,
			Date:        tx.Date.BR(),
			Description: tx.Description,
			Category:    tx.Category,
			Method:      tx.Method,
			Installment: tx.Installment,
			Paid:        tx.Paid,
			Amount:      core.FormatBRL(tx.SignedCents()),
			Overdue:     !tx.Paid && tx.Date.Before(today),
		})
	}

	var from, to string
	if !state.From.IsZero() {
		from = state.From.ISO()
	}
	if !state.To.IsZero() {
		to = state.To.ISO()
	}

	return dashboardData{
		Tab:           string(state.Tab),
		MonthLabel:    monthLabel(state.ShownYear, state.ShownMonth),
		ShowAllMonths: state.ShowAllMonths,
		From:          from,
		To:            to,

		FixedCategory:   state.FixedCategory,
		AdverseCategory: state.AdverseCategory,
		RevenueCategory: state.RevenueCategory,

		FixedCategories:   core.FixedExpenses,
		AdverseCategories: core.AdverseExpenses,
		RevenueCategories: core.Revenues,

		Rows: rows,

		Paid:    core.FormatBRL(summary.Paid.Cents),
		Due:     core.FormatBRL(summary.Due.Cents),
		Overdue: core.FormatBRL(summary.Overdue.Cents),
		Total:   core.FormatBRL(summary.Total.Cents),
		Inflow:  core.FormatBRL(summary.Inflow.Cents),
		Outflow: core.FormatBRL(summary.Outflow.Cents),

		ShowFlows: state.Tab == core.TabAll,
	}
}

// viewCacheKey is the filter state plus the render date, flattened. Any
// state change alters the key; mutations purge the whole cache. The date is
// part of the key because overdue classification shifts at midnight, which
// must not be masked by an entry cached the day before.
func viewCacheKey(state dashboard.State, today core.Date) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d-%02d|%t|%s|%s|%s",
		today.ISO(), state.Tab, state.From.ISO(), state.To.ISO(),
		state.ShownYear, state.ShownMonth, state.ShowAllMonths,
		state.FixedCategory, state.AdverseCategory, state.RevenueCategory)
}

// renderPartial renders the dashboard partial, serving from the view cache
// when the filter state was rendered recently.
func (s *Server) renderPartial(r *http.Request) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}

	today := core.Today()
	key := viewCacheKey(s.controller.Snapshot(), today)
	if html, ok := s.viewCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Dashboard cache hit", "key", key)
		return []byte(html), nil
	}

	var buf bytes.Buffer
	data := s.buildDashboardData(today)
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}

	s.viewCache.Set(key, buf.String())
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Dashboard: s.buildDashboardData(core.Today()),
		Methods:   core.Methods(),
		Today:     core.Today().ISO(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	html, err := s.renderPartial(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard render failed", applog.FieldError, err)
		InternalServerError("Não foi possível montar o painel").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "text/html; charset=utf-8").
		Body(html).
		Write(w)
}

// handleApplyFilter applies one reducer action to the dashboard state and
// responds with the refreshed partial.
func (s *Server) handleApplyFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	action := sanitizeInput(r.Form.Get("action"))
	today := core.Today()

	switch action {
	case "tab":
		tab := parseTab(r.Form.Get("tab"))
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithTab(tab) })
	case "range":
		from, errFrom := core.ParseDate(sanitizeInput(r.Form.Get("from")))
		to, errTo := core.ParseDate(sanitizeInput(r.Form.Get("to")))
		if errFrom != nil {
			from = core.Date{}
		}
		if errTo != nil {
			to = core.Date{}
		}
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithRange(from, to) })
	case "show-all":
		on := r.Form.Get("on") == "true" || r.Form.Get("on") == "on"
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithShowAllMonths(on) })
	case "month-shift":
		delta, err := strconv.Atoi(r.Form.Get("delta"))
		if err != nil || (delta != -1 && delta != 1) {
			BadRequestError("Deslocamento de mês inválido").Write(w)
			return
		}
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithMonthShift(delta) })
	case "category-fixed":
		name := sanitizeInput(r.Form.Get("category"))
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithFixedCategory(name) })
	case "category-adverse":
		name := sanitizeInput(r.Form.Get("category"))
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithAdverseCategory(name) })
	case "category-revenue":
		name := sanitizeInput(r.Form.Get("category"))
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.WithRevenueCategory(name) })
	case "reset":
		s.controller.Apply(func(st dashboard.State) dashboard.State { return st.ResetFilters(today) })
	default:
		BadRequestError("Ação de filtro desconhecida").Write(w)
		return
	}

	s.viewCache.Purge()

	html, err := s.renderPartial(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard render failed", applog.FieldError, err)
		InternalServerError("Não foi possível montar o painel").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "text/html; charset=utf-8").
		Body(html).
		Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", applog.FieldError, err)
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	draft := ledger.Draft{
		Name:        sanitizeInput(r.Form.Get("name")),
		Date:        sanitizeInput(r.Form.Get("date")),
		Description: sanitizeInput(r.Form.Get("description")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Method:      sanitizeInput(r.Form.Get("method")),
		Installment: sanitizeInput(r.Form.Get("installment")),
		Paid:        r.Form.Get("paid") == "on" || r.Form.Get("paid") == "true",
		Value:       sanitizeInput(r.Form.Get("value")),
		Type:        sanitizeInput(r.Form.Get("type")),
	}

	// Reject malformed drafts up front so they never reach the gateway.
	if _, err := ledger.ParseDraft(draft); err != nil {
		s.logger.WarnContext(r.Context(), "Rejected invalid transaction",
			applog.FieldError, err,
			applog.FieldCategory, draft.Category,
			applog.FieldType, draft.Type)
		UnprocessableEntityError("Transação inválida: " + err.Error()).
			TriggerErrorNotification("Verifique os campos do formulário").
			Write(w)
		return
	}

	created, err := s.controller.Add(r.Context(), draft)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			NotFoundError("Categoria desconhecida: " + draft.Category).
				TriggerErrorNotification("Categoria desconhecida").
				Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Create transaction failed", applog.FieldError, err)
		InternalServerError("Não foi possível salvar a transação").
			TriggerErrorNotification("Erro ao salvar a transação").
			Write(w)
		return
	}

	s.viewCache.Purge()

	html, rerr := s.renderPartial(r)
	if rerr != nil {
		InternalServerError("Não foi possível montar o painel").Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, created.ID,
		applog.FieldAmountCents, created.Amount.Cents,
		applog.FieldType, string(created.Type))

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(created.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Transação registrada").
		Header("Content-Type", "text/html; charset=utf-8").
		Body(html).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		BadRequestError("Identificador inválido").Write(w)
		return
	}

	if err := s.controller.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			NotFoundError("Transação não encontrada").
				TriggerErrorNotification("Transação não encontrada").
				Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Delete transaction failed",
			applog.FieldError, err,
			applog.FieldTransactionID, id)
		InternalServerError("Não foi possível excluir a transação").Write(w)
		return
	}

	s.viewCache.Purge()

	html, rerr := s.renderPartial(r)
	if rerr != nil {
		InternalServerError("Não foi possível montar o painel").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transação excluída").
		Header("Content-Type", "text/html; charset=utf-8").
		Body(html).
		Write(w)
}

func (s *Server) handleToggleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		BadRequestError("Identificador inválido").Write(w)
		return
	}

	updated, err := s.controller.TogglePaid(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			NotFoundError("Transação não encontrada").
				TriggerErrorNotification("Transação não encontrada").
				Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Toggle transaction failed",
			applog.FieldError, err,
			applog.FieldTransactionID, id)
		InternalServerError("Não foi possível atualizar a transação").Write(w)
		return
	}

	s.viewCache.Purge()

	html, rerr := s.renderPartial(r)
	if rerr != nil {
		InternalServerError("Não foi possível montar o painel").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTransactionToggled(id, updated.Paid).
		Header("Content-Type", "text/html; charset=utf-8").
		Body(html).
		Write(w)
}

// handleExportCSV streams the currently visible transactions with signed
// amounts, semicolon separated for pt-BR spreadsheet defaults.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	visible, _ := s.controller.View(core.Today())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contas.csv"`)

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	_ = cw.Write([]string{"id", "data", "nome", "descricao", "categoria", "metodo", "parcela", "pago", "valor", "tipo"})
	for _, tx := range visible {
		paid := "nao"
		if tx.Paid {
			paid = "sim"
		}
		_ = cw.Write([]string{
			strconv.FormatInt(tx.ID, 10),
			tx.Date.ISO(),
			tx.Name,
			tx.Description,
			tx.Category,
			tx.Method,
			tx.Installment,
			paid,
			signedDecimal(tx.SignedCents()),
			string(tx.Type),
		})
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", applog.FieldError, err)
	}
}
