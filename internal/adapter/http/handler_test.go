package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loandesk/internal/testutil/poolmock"
)

func TestHealth(t *testing.T) {
	e := newEchoWithValidator()
	led, _ := newTestLedger(t, &poolmock.Pool{})
	Register(e, led)

	req := httptest.NewRequest(stdhttp.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStats_ThroughRouter(t *testing.T) {
	e := newEchoWithValidator()
	led, _ := newTestLedger(t, &poolmock.Pool{})
	Register(e, led)
	originate(t, led, 1000, 30)

	req := httptest.NewRequest(stdhttp.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats struct {
		ApplicationsCount uint64 `json:"applications_count"`
		LoansCount        uint64 `json:"loans_count"`
		OfferedFunds      string `json:"offered_funds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if stats.ApplicationsCount != 1 || stats.LoansCount != 1 || stats.OfferedFunds != "0" {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRouter_BadPathParam(t *testing.T) {
	e := newEchoWithValidator()
	led, _ := newTestLedger(t, &poolmock.Pool{})
	Register(e, led)

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/zero/balance", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
