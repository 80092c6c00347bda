package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse writes a JSON {error, message} body and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return ErrorResponseWithDetails(w, statusCode, errorCode, message, nil)
}

// ErrorResponseWithDetails is ErrorResponse with extra top-level fields, such
// as the name of a missing parameter. Details never override error or message.
func ErrorResponseWithDetails(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]any) error {
	body := make(map[string]any, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["error"] = errorCode
	body["message"] = message
	return WriteJSON(w, statusCode, body)
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
