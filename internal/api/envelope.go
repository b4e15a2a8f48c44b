package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the standard JSON response envelope.
type Response struct {
	Result  interface{} `json:"result"`
	Success bool        `json:"success"`
	Errors  []Error     `json:"errors"`
}

// Error is a single error in the response envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo carries pagination metadata for list endpoints.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}

// SuccessResponse builds a successful response.
func SuccessResponse(result interface{}) Response {
	return Response{
		Result:  result,
		Success: true,
		Errors:  []Error{},
	}
}

// ErrorResponse builds an error response.
func ErrorResponse(code int, message string) Response {
	return Response{
		Result:  nil,
		Success: false,
		Errors:  []Error{{Code: code, Message: message}},
	}
}

// PaginatedResponse builds a successful response that includes result_info.
func PaginatedResponse(result interface{}, info ResultInfo) map[string]interface{} {
	return map[string]interface{}{
		"result":      result,
		"success":     true,
		"errors":      []Error{},
		"result_info": info,
	}
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
