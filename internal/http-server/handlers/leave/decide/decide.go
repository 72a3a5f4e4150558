package decide

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

type LeaveDecider interface {
	DecideLeave(ctx context.Context, id string, req *api.LeaveDecideRequest) (*api.LeaveResponse, error)
}

type Request struct {
	api.LeaveDecideRequest
}

type Response struct {
	response.Response
	Leave api.LeaveResponse `json:"leave,omitempty"`
}

func New(log *slog.Logger, decider LeaveDecider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.leave.decide.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		leave, err := decider.DecideLeave(r.Context(), id, &req.LeaveDecideRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid decide request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if errors.Is(err, response.ErrForbidden) {
			log.Error("self-approval is not allowed")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.FORBIDDEN), "a doctor cannot decide their own leave"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("leave is already decided")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "leave is already decided"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to decide leave", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to decide leave"))
			return
		}

		log.Info("Leave decided", slog.String("leave_id", id), slog.String("status", req.Status))

		render.JSON(w, r, Response{
			Leave: *leave,
		})
	}
}
