package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"medsched-service/api"
	"medsched-service/pkg/response"
	"medsched-service/pkg/sl"
)

type LeaveCreator interface {
	CreateLeave(ctx context.Context, req *api.LeaveCreateRequest) (*api.LeaveResponse, error)
}

type Request struct {
	api.LeaveCreateRequest
}

type Response struct {
	response.Response
	Leave api.LeaveResponse `json:"leave,omitempty"`
}

func New(log *slog.Logger, creator LeaveCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.leave.create.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		if req.DoctorID == "" {
			log.Error("doctor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "doctor_id is required"))
			return
		}

		if req.LeaveDate == "" {
			log.Error("leave_date is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "leave_date is required"))
			return
		}

		leave, err := creator.CreateLeave(r.Context(), &req.LeaveCreateRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid leave request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("leave already exists for this date")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "leave already exists for this date"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to create leave", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create leave"))
			return
		}

		log.Info("Leave created", slog.Any("leave", leave))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Leave: *leave,
		})
	}
}
