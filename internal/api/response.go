package api

import (
	"errors"
	"net/http"

	"polling_contract/internal/contract"
	"polling_contract/internal/host"
	"polling_contract/internal/models"
)

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := models.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	Raw(w, status, body)
}

// Raw writes an already encoded JSON body.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func ErrorJSON(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contract.ErrAlreadyExists), errors.Is(err, host.ErrAlreadyInstantiated):
		return http.StatusConflict
	case errors.Is(err, contract.ErrPollNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrInvalidChoice),
		errors.Is(err, contract.ErrInvalidAddress),
		errors.Is(err, models.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, host.ErrNotInstantiated):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
