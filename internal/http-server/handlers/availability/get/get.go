package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"medsched-service/api"
	"medsched-service/pkg/response"
	"medsched-service/pkg/sl"
)

type RulesProvider interface {
	GetAvailabilityRules(ctx context.Context, doctorID string) ([]*api.AvailabilityRuleResponse, error)
}

type Response struct {
	response.Response
	Rules []*api.AvailabilityRuleResponse `json:"rules"`
}

func New(log *slog.Logger, provider RulesProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		doctorID := chi.URLParam(r, "doctorID")
		if doctorID == "" {
			log.Error("doctor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "doctor_id is required"))
			return
		}

		rules, err := provider.GetAvailabilityRules(r.Context(), doctorID)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get availability rules", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get availability rules"))
			return
		}

		render.JSON(w, r, Response{
			Rules: rules,
		})
	}
}
