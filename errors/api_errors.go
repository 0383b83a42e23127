package errors

// APIError is the JSON error body returned by every handler.
type APIError struct {
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewBadRequest(message string) *APIError {
	return &APIError{Message: message}
}

func NewUnauthorized(message string) *APIError {
	return &APIError{Message: message}
}

func NewNotFound(message string) *APIError {
	return &APIError{Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Message: message}
}
