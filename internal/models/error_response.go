package models

// ErrorResponse описывает тело ответа с ошибкой.
type ErrorResponse struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"reason"`
	Status     TenderStatus `json:"currentStatus,omitempty"`
	Current    *Tender      `json:"current,omitempty"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, code, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message}
}
