package httpapi

import (
	"net/http"

	json "github.com/goccy/go-json"

	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/logger"
)

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Message: "success", Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Message: "fail", Error: msg})
}

// writeError maps err's kind to a status; store and precondition details stay hidden.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), h.appCtx.Logger).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeFail(w, status, svcErr.PublicMessage(err))
}
