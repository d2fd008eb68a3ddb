package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
	"contas/internal/dashboard"
	"contas/internal/ledger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := ledger.NewMemoryStore()
	service := ledger.NewService(store, nil)
	controller := dashboard.NewController(service, core.Today())
	controller.Load(context.Background())

	srv := NewServer(":0", controller)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doRequest(srv *Server, method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func createForm(value string) url.Values {
	return url.Values{
		"name":        {"Conta de luz"},
		"date":        {core.Today().ISO()},
		"description": {"Energia do escritório"},
		"category":    {"Luz"},
		"method":      {"Pix"},
		"installment": {"1/1"},
		"value":       {value},
		"type":        {"pagar"},
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Contas a pagar e receber")

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doRequest(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestTransactionsPartial(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/ui/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nenhuma transação no período")
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Invalid value never reaches the store.
	rr := doRequest(srv, http.MethodPost, "/transactions", createForm("abc"))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(srv, http.MethodGet, "/ui/transactions", nil)
	assert.Contains(t, rr.Body.String(), "Nenhuma transação no período")

	// Unknown category is a 404.
	form := createForm("350")
	form.Set("category", "Categoria inexistente")
	rr = doRequest(srv, http.MethodPost, "/transactions", form)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Success responds with the refreshed partial and HTMX triggers.
	rr = doRequest(srv, http.MethodPost, "/transactions", createForm("350"))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "transaction:created")
	assert.Contains(t, rr.Body.String(), "Energia do escritório")
	assert.Contains(t, rr.Body.String(), "-R$ 350,00")
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodDelete, "/transactions/99", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(srv, http.MethodPost, "/transactions", createForm("100"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(srv, http.MethodDelete, "/transactions/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "transaction:deleted")
	assert.Contains(t, rr.Body.String(), "Nenhuma transação no período")

	rr = doRequest(srv, http.MethodDelete, "/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestToggleTransaction(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodPost, "/transactions/7/toggle", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(srv, http.MethodPost, "/transactions", createForm("100"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(srv, http.MethodPost, "/transactions/1/toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"paid":true`)

	rr = doRequest(srv, http.MethodPost, "/transactions/1/toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"paid":false`)
}

func TestApplyFilterTab(t *testing.T) {
	srv := newTestServer(t)

	// The combined tab shows the inflow and outflow cards.
	rr := doRequest(srv, http.MethodPost, "/filters", url.Values{"action": {"tab"}, "tab": {"all"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Entradas")
	assert.Contains(t, rr.Body.String(), "Saídas")

	rr = doRequest(srv, http.MethodPost, "/filters", url.Values{"action": {"tab"}, "tab": {"pagar"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Entradas")

	rr = doRequest(srv, http.MethodPost, "/filters", url.Values{"action": {"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(srv, http.MethodPost, "/filters", url.Values{"action": {"month-shift"}, "delta": {"5"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFilterHidesOutOfRangeRows(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodPost, "/transactions", createForm("350"))
	require.Equal(t, http.StatusCreated, rr.Code)

	// A range far in the past excludes the new row.
	rr = doRequest(srv, http.MethodPost, "/filters", url.Values{
		"action": {"range"},
		"from":   {"2000-01-01"},
		"to":     {"2000-01-31"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nenhuma transação no período")

	// Reset brings it back.
	rr = doRequest(srv, http.MethodPost, "/filters", url.Values{"action": {"reset"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Energia do escritório")
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodPost, "/transactions", createForm("350"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(srv, http.MethodGet, "/export.csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Body.String(), "Energia do escritório")
	assert.Contains(t, rr.Body.String(), "-350.00")
}

func TestViewCacheKeyChangesWithDate(t *testing.T) {
	state := dashboard.NewState(core.NewDate(2025, 5, 20))

	// Same filter state rendered on consecutive days must not share a
	// cache entry: overdue classification shifts at midnight.
	yesterday := viewCacheKey(state, core.NewDate(2025, 5, 20))
	today := viewCacheKey(state, core.NewDate(2025, 5, 21))
	assert.NotEqual(t, yesterday, today)
	assert.Equal(t, yesterday, viewCacheKey(state, core.NewDate(2025, 5, 20)))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}
