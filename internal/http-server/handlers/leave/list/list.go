package list

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

type LeaveLister interface {
	ListLeave(ctx context.Context, doctorID, status *string) ([]*api.LeaveResponse, error)
}

type Response struct {
	response.Response
	Leaves []*api.LeaveResponse `json:"leaves"`
}

func New(log *slog.Logger, lister LeaveLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.leave.list.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var doctorID, status *string

		if v := r.URL.Query().Get("doctor_id"); v != "" {
			doctorID = &v
		}
		if v := r.URL.Query().Get("status"); v != "" {
			status = &v
		}

		leaves, err := lister.ListLeave(r.Context(), doctorID, status)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid leave query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if err != nil {
			log.Error("Failed to list leave", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list leave"))
			return
		}

		render.JSON(w, r, Response{
			Leaves: leaves,
		})
	}
}
