package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/utils"
)

// respondError пишет ошибку сервиса в журнал и отправляет её клиенту.
func respondError(log *logger.Logger, w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := utils.StatusFromError(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg(msg)
	utils.SendError(w, err)
}

// decodeBody читает JSON-тело запроса в dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
