package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/rs/zerolog/log"
)

// SendJSON отправляет тело ответа в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, models.NewErrorResponse(statusCode, codeForStatus(statusCode), message))
}

// SendError отправляет типизированную ошибку сервиса с подходящим HTTP-статусом.
func SendError(w http.ResponseWriter, err error) {
	resp := ErrorResponseFrom(err)
	SendJSON(w, resp.StatusCode, resp)
}

// ErrorResponseFrom строит тело ответа по типу ошибки.
func ErrorResponseFrom(err error) *models.ErrorResponse {
	statusCode := StatusFromError(err)
	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		message = "internal server error"
	}
	resp := models.NewErrorResponse(statusCode, models.ErrorCode(err), message)

	var transition *models.InvalidTransitionError
	var conflict *models.ConflictError
	switch {
	case errors.As(err, &transition):
		resp.Status = transition.From
	case errors.As(err, &conflict) && conflict.Current != nil:
		resp.Status = conflict.Current.Status
		resp.Current = conflict.Current
	}
	return resp
}

// StatusFromError сопоставляет ошибку сервиса HTTP-статусу.
func StatusFromError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeInvalidTransition, models.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusConflict:
		return models.CodeConflict
	default:
		return models.CodeInternal
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// SplitQuery собирает значения параметра, переданные несколько раз или через запятую.
func SplitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseBool разбирает необязательный булев параметр запроса.
func ParseBool(name, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, models.NewValidationError(name, "must be a boolean")
	}
	return b, nil
}
