package create_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"medsched-service/api"
	"medsched-service/internal/http-server/handlers/bookings/create"
	"medsched-service/pkg/response"
)

type stubCreator struct {
	booking *api.BookingResponse
	err     error

	got *api.BookingRequest
}

func (s *stubCreator) CreateBooking(_ context.Context, req *api.BookingRequest) (*api.BookingResponse, error) {
	s.got = req
	return s.booking, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postBooking(t *testing.T, handler http.HandlerFunc, payload string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	return rr
}

func TestCreateBooking_OK(t *testing.T) {
	creator := &stubCreator{
		booking: &api.BookingResponse{
			ID: "booking-1", DoctorID: "doc-1", PatientID: "pat-1",
			Date: "2026-01-05", Time: "09:00", Status: "scheduled",
		},
	}

	handler := create.New(discardLogger(), creator)

	rr := postBooking(t, handler, `{"doctor_id":"doc-1","patient_id":"pat-1","date":"2026-01-05","time":"09:00","reason":"checkup"}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if creator.got == nil || creator.got.Reason != "checkup" {
		t.Errorf("request not passed through: %+v", creator.got)
	}

	var body struct {
		Booking api.BookingResponse `json:"booking"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Booking.ID != "booking-1" || body.Booking.Status != "scheduled" {
		t.Errorf("unexpected booking in response: %+v", body.Booking)
	}
}

func TestCreateBooking_BadBody(t *testing.T) {
	handler := create.New(discardLogger(), &stubCreator{})

	rr := postBooking(t, handler, `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestCreateBooking_MissingFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"no doctor_id", `{"patient_id":"pat-1","date":"2026-01-05","time":"09:00"}`},
		{"no patient_id", `{"doctor_id":"doc-1","date":"2026-01-05","time":"09:00"}`},
		{"no date", `{"doctor_id":"doc-1","patient_id":"pat-1","time":"09:00"}`},
		{"no time", `{"doctor_id":"doc-1","patient_id":"pat-1","date":"2026-01-05"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			creator := &stubCreator{}
			handler := create.New(discardLogger(), creator)

			rr := postBooking(t, handler, tc.payload)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
			if creator.got != nil {
				t.Error("service must not be called on invalid input")
			}
		})
	}
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"bad request", response.ErrBadRequest, http.StatusBadRequest, string(response.BAD_REQUEST)},
		{"locked", response.ErrLocked, http.StatusLocked, string(response.LOCKED)},
		{"slot conflict", response.ErrSlotConflict, http.StatusConflict, string(response.SLOT_CONFLICT)},
		{"not found", response.ErrNotFound, http.StatusNotFound, string(response.NOT_FOUND)},
		{"internal", io.ErrUnexpectedEOF, http.StatusInternalServerError, string(response.FAILED_REQUEST)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := create.New(discardLogger(), &stubCreator{err: tc.err})

			rr := postBooking(t, handler, `{"doctor_id":"doc-1","patient_id":"pat-1","date":"2026-01-05","time":"09:00"}`)

			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rr.Code)
			}

			var body response.Response
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Code != tc.wantErr {
				t.Errorf("expected error code %s, got %s", tc.wantErr, body.Code)
			}
		})
	}
}
