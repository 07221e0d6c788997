package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError мапит доменные ошибки на HTTP-статусы.
// Детали StoreFailure наружу не уходят — клиент получает generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, domain.ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, errorBody{Error: domain.ErrAlreadyResolved.Error()})
	case errors.Is(err, service.ErrAdminExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: service.ErrAdminExists.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
