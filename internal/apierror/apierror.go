// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ConRequestID tags the error with the request it answers.
func (e *APIError) ConRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// Interno is the body of every 500 whose cause is not shown to the client.
// The request id lets support find the logged cause.
func Interno(requestID string) *APIError {
	return &APIError{Detail: "Error interno del servidor", RequestID: requestID}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// StockError lists every product shortfall of a rejected operation so the
// client can fix the whole order in one pass.
type StockError struct {
	Detail    string      `json:"detail"`
	Faltantes interface{} `json:"faltantes"`
}

func NewStock(msg string, faltantes interface{}) *StockError {
	return &StockError{Detail: msg, Faltantes: faltantes}
}
