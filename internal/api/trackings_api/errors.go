package trackings_api

import (
	"log/slog"
	"net/http"

	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *trackings.ValidationError
	var perr *trackings.ProviderError
	switch {
	case errors.As(err, &verr):
		fail(w, r, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &perr):
		fail(w, r, http.StatusNotFound, perr.Err.Error())
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err.Error())
		fail(w, r, http.StatusInternalServerError, "internal server error")
	}
}
