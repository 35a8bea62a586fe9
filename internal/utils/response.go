package utils

import "net/http"

// Response represents a standardized response structure.
// It includes a success flag, a status code, a message, and data.
type Response struct {
	Success bool        `json:"success"`
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"` // Ensure data is always present, even if nil (will be null in JSON)
}

// NewResponse creates a new Response instance. Success follows the status code.
func NewResponse(status int, message string, data interface{}) Response {
	return Response{
		Success: status < http.StatusBadRequest,
		Status:  status,
		Message: message,
		Data:    data,
	}
}

// NewSuccessResponse creates a new success Response instance.
// Defaults status to 200 (OK).
func NewSuccessResponse(message string, data interface{}) Response {
	return Response{
		Success: true,
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates a new error Response instance.
// Data is explicitly set to nil.
func NewErrorResponse(status int, message string) Response {
	return Response{
		Success: false,
		Status:  status,
		Message: message,
		Data:    nil,
	}
}

// PageData is the data payload of paginated list responses.
type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
