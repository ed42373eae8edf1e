package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("title", "required"), http.StatusBadRequest},
		{"not found", models.NewNotFoundError("tender", "1"), http.StatusNotFound},
		{"transition", &models.InvalidTransitionError{From: models.DraftTender, Action: models.CloseAction}, http.StatusConflict},
		{"conflict", models.NewConflictError("stale", nil), http.StatusConflict},
		{"wrapped", fmt.Errorf("load: %w", models.NewNotFoundError("bid", "2")), http.StatusNotFound},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestErrorResponseFrom(t *testing.T) {
	current := &models.Tender{ID: "t-1", Status: models.ClosedTender, Version: 3}

	resp := ErrorResponseFrom(models.NewConflictError("stale version", current))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, resp.Code)
	assert.Equal(t, models.ClosedTender, resp.Status)
	assert.Same(t, current, resp.Current)

	resp = ErrorResponseFrom(&models.InvalidTransitionError{From: models.AwardedTender, Action: models.CancelAction})
	assert.Equal(t, models.CodeInvalidTransition, resp.Code)
	assert.Equal(t, models.AwardedTender, resp.Status)
	assert.Nil(t, resp.Current)

	resp = ErrorResponseFrom(errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
}

func TestSendError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, models.NewValidationError("limit", "too large"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.CodeValidation, body["code"])
	assert.Equal(t, "limit: too large", body["reason"])
	assert.NotContains(t, body, "currentStatus")
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = ParseLimitOffset("50", "10")
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)

	for _, tc := range [][2]string{{"0", ""}, {"51", ""}, {"abc", ""}, {"", "-1"}, {"", "x"}} {
		_, _, err := ParseLimitOffset(tc[0], tc[1])
		assert.Error(t, err, "limit=%q offset=%q", tc[0], tc[1])
	}
}

func TestSplitQuery(t *testing.T) {
	assert.Equal(t, []string{"construction", "delivery", "it_services"},
		SplitQuery([]string{"construction, delivery", "it_services", " , "}))
	assert.Nil(t, SplitQuery(nil))
}

func TestParseBool(t *testing.T) {
	v, err := ParseBool("force", "")
	require.NoError(t, err)
	assert.False(t, v)

	v, err = ParseBool("force", "true")
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseBool("force", "maybe")
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "force", validation.Field)
}
