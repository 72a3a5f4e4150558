package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"medsched-service/api"
	"medsched-service/pkg/response"
	"medsched-service/pkg/sl"
)

type SummaryProvider interface {
	AvailabilitySummary(ctx context.Context, hospitalID string) (*api.SummaryResponse, error)
}

type Response struct {
	response.Response
	Summary api.SummaryResponse `json:"summary,omitempty"`
}

func New(log *slog.Logger, provider SummaryProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.summary.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		// Empty hospital_id means the all-tenants rollup for super-admin callers.
		hospitalID := r.URL.Query().Get("hospital_id")

		summary, err := provider.AvailabilitySummary(r.Context(), hospitalID)

		if err != nil {
			log.Error("Failed to build availability summary", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to build availability summary"))
			return
		}

		render.JSON(w, r, Response{
			Summary: *summary,
		})
	}
}
