package list_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"medsched-service/api"
	"medsched-service/internal/http-server/handlers/slots/list"
	"medsched-service/pkg/response"
)

type stubLister struct {
	slots []*api.SlotResponse
	err   error

	gotDoctorID string
	gotDate     string
}

func (s *stubLister) ListSlots(_ context.Context, doctorID, date string) ([]*api.SlotResponse, error) {
	s.gotDoctorID = doctorID
	s.gotDate = date
	return s.slots, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListSlots_OK(t *testing.T) {
	lister := &stubLister{
		slots: []*api.SlotResponse{
			{Time: "09:00", Available: true, Capacity: 1, SlotDurationMinutes: 30},
			{Time: "09:30", Available: false, Capacity: 1, SlotDurationMinutes: 30},
		},
	}

	handler := list.New(discardLogger(), lister)

	req := httptest.NewRequest(http.MethodGet, "/slots?doctor_id=doc-1&date=2026-01-05", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if lister.gotDoctorID != "doc-1" || lister.gotDate != "2026-01-05" {
		t.Errorf("query params not passed through: %q %q", lister.gotDoctorID, lister.gotDate)
	}

	var body struct {
		Slots []*api.SlotResponse `json:"slots"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(body.Slots))
	}
	if body.Slots[0].Time != "09:00" || !body.Slots[0].Available {
		t.Errorf("unexpected first slot: %+v", body.Slots[0])
	}
	if body.Slots[1].Available {
		t.Errorf("second slot should be unavailable: %+v", body.Slots[1])
	}
}

func TestListSlots_MissingParams(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"no doctor_id", "/slots?date=2026-01-05"},
		{"no date", "/slots?doctor_id=doc-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := list.New(discardLogger(), &stubLister{})

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestListSlots_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"bad request", response.ErrBadRequest, http.StatusBadRequest},
		{"not found", response.ErrNotFound, http.StatusNotFound},
		{"internal", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := list.New(discardLogger(), &stubLister{err: tc.err})

			req := httptest.NewRequest(http.MethodGet, "/slots?doctor_id=doc-1&date=2026-01-05", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rr.Code)
			}

			var body response.Response
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Code == "" {
				t.Error("expected an error code in the envelope")
			}
		})
	}
}
