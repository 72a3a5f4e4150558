package save

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

type RulesSaver interface {
	SaveAvailabilityRules(ctx context.Context, doctorID string, req *api.SaveAvailabilityRequest) ([]*api.AvailabilityRuleResponse, error)
}

type Request struct {
	api.SaveAvailabilityRequest
}

type Response struct {
	response.Response
	Rules []*api.AvailabilityRuleResponse `json:"rules"`
}

func New(log *slog.Logger, saver RulesSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.save.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Int("rules", len(req.Rules)))

		rules, err := saver.SaveAvailabilityRules(r.Context(), doctorID, &req.SaveAvailabilityRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid availability rules", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to save availability rules", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to save availability rules"))
			return
		}

		log.Info("Availability rules saved", slog.String("doctor_id", doctorID), slog.Int("rules", len(rules)))

		render.JSON(w, r, Response{
			Rules: rules,
		})
	}
}
