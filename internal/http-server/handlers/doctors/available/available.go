package available

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"medsched-service/pkg/response"
	"medsched-service/pkg/sl"
)

type AvailableDoctorsProvider interface {
	AvailableDoctorIDs(ctx context.Context, date string) ([]string, error)
}

type Response struct {
	response.Response
	DoctorIDs []string `json:"doctor_ids"`
}

func New(log *slog.Logger, provider AvailableDoctorsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.doctors.available.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		date := r.URL.Query().Get("date")
		if date == "" {
			log.Error("date is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "date is required"))
			return
		}

		ids, err := provider.AvailableDoctorIDs(r.Context(), date)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if err != nil {
			log.Error("Failed to list available doctors", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available doctors"))
			return
		}

		log.Info("Available doctors listed", slog.String("date", date), slog.Int("count", len(ids)))

		render.JSON(w, r, Response{
			DoctorIDs: ids,
		})
	}
}
