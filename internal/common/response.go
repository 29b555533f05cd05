package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"` // Per-field validation errors
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError maps a domain error to its status and, for
// validation failures, includes the violated fields.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		RespondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   ErrValidation.Error(),
			Details: vErr.Fields,
		})
		return
	}
	RespondWithError(w, HTTPStatusFromError(err), err.Error())
}

// RespondWithAuthError advertises the expected credential scheme alongside
// the 401, as required for bearer-token challenges.
func RespondWithAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	RespondWithError(w, http.StatusUnauthorized, message)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
