package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
)

// brazilian month names, indexed by time.Month.
var monthNames = [...]string{
	"", "janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// monthLabel renders "maio 2025" for the shown month selector.
func monthLabel(year, month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(year)
	}
	return monthNames[month] + " " + strconv.Itoa(year)
}

// parseTab maps the form value onto a tab, defaulting to payables.
func parseTab(v string) core.Tab {
	switch core.Tab(strings.TrimSpace(v)) {
	case core.TabReceivable:
		return core.TabReceivable
	case core.TabAll:
		return core.TabAll
	default:
		return core.TabPayable
	}
}

// parsePathID extracts the {id} path segment as an int64.
func parsePathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid transaction id %q", raw)
	}
	return id, nil
}

// signedDecimal renders cents as a plain decimal string for CSV export,
// dot separated so spreadsheets parse it as a number.
func signedDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = strings.TrimSpace(ip[:i])
	}
	return ip
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
