package get_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"medsched-service/api"
	"medsched-service/internal/http-server/handlers/summary/get"
	"medsched-service/pkg/response"
)

type stubProvider struct {
	summary *api.SummaryResponse
	err     error

	gotHospitalID string
}

func (s *stubProvider) AvailabilitySummary(_ context.Context, hospitalID string) (*api.SummaryResponse, error) {
	s.gotHospitalID = hospitalID
	return s.summary, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummary_OK(t *testing.T) {
	provider := &stubProvider{
		summary: &api.SummaryResponse{
			Doctors:        4,
			ActiveRules:    9,
			RulesByWeekday: [7]int{0, 3, 2, 2, 1, 1, 0},
			ApprovedLeave:  2,
			LeaveToday:     1,
			LeaveUpcoming:  1,
		},
	}

	handler := get.New(discardLogger(), provider)

	req := httptest.NewRequest(http.MethodGet, "/availability/summary?hospital_id=hosp-1", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if provider.gotHospitalID != "hosp-1" {
		t.Errorf("hospital_id not passed through, got %q", provider.gotHospitalID)
	}

	var body struct {
		Summary api.SummaryResponse `json:"summary"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Summary.Doctors != 4 || body.Summary.ActiveRules != 9 {
		t.Errorf("unexpected summary in response: %+v", body.Summary)
	}
	if body.Summary.RulesByWeekday[1] != 3 {
		t.Errorf("unexpected weekday histogram: %v", body.Summary.RulesByWeekday)
	}
}

func TestSummary_AllTenants(t *testing.T) {
	provider := &stubProvider{summary: &api.SummaryResponse{}}

	handler := get.New(discardLogger(), provider)

	// No hospital_id means the all-tenants rollup.
	req := httptest.NewRequest(http.MethodGet, "/availability/summary", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if provider.gotHospitalID != "" {
		t.Errorf("expected empty hospital scope, got %q", provider.gotHospitalID)
	}
}

func TestSummary_StoreError(t *testing.T) {
	handler := get.New(discardLogger(), &stubProvider{err: io.ErrUnexpectedEOF})

	req := httptest.NewRequest(http.MethodGet, "/availability/summary", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body response.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != string(response.FAILED_REQUEST) {
		t.Errorf("expected error code %s, got %s", response.FAILED_REQUEST, body.Code)
	}
}
