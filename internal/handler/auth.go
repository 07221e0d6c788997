package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra/auth"
	"github.com/xela07ax/devguard/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Login — POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	token, admin, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, err)
			return
		}
		// не уточняем, что именно неверно (логин или пароль)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"admin": map[string]string{
			"id":    admin.ID,
			"email": admin.Email,
		},
	})
}

// Register — POST /api/auth/register. Эндпоинт начальной настройки.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	admin, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Admin user created successfully",
		"admin":   admin,
	})
}

// Verify — GET /api/auth/verify (admin-периметр): фронт проверяет живость токена.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	admin, err := h.service.Verify(r.Context(), adminID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"admin": admin,
	})
}
