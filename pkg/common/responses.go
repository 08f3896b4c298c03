// Package common holds helpers shared by the HTTP handlers.
package common

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is the body of endpoints that only report an outcome
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RespondJSON writes data as the JSON body with status
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// RespondStatus writes a StatusResponse
func RespondStatus(w http.ResponseWriter, status int, outcome, message string) {
	RespondJSON(w, status, StatusResponse{Status: outcome, Message: message})
}

// DecodeJSON reads the request body into dst, rejecting unknown fields
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
