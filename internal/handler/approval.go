package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra/auth"
	"github.com/xela07ax/devguard/internal/service"
)

// ApprovalService Описываем, что нам нужно от сервиса
type ApprovalService interface {
	Submit(ctx context.Context, deviceID, requestType string, targetData map[string]any, notes *string) (*domain.ApprovalRequest, error)
	CheckStatus(ctx context.Context, deviceID, requestID string) (*service.StatusResult, error)
	Resolve(ctx context.Context, adminID, requestID string, status domain.ApprovalStatus, notes *string) (*domain.ApprovalRequest, error)
	ListPending(ctx context.Context) ([]*domain.PendingRequest, error)
	ListByDevice(ctx context.Context, deviceID string) ([]*domain.ApprovalRequest, error)
}

type ApprovalHandler struct {
	service ApprovalService
}

func NewApprovalHandler(s ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: s}
}

type submitRequest struct {
	RequestType string         `json:"request_type"`
	TargetData  map[string]any `json:"target_data"`
	Notes       *string        `json:"notes,omitempty"`
}

// Submit — POST /api/device/requests (device-периметр).
// Идентичность берем только из контекста, проставленного middleware.
func (h *ApprovalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	app, err := h.service.Submit(r.Context(), deviceID, req.RequestType, req.TargetData, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	// Отдаем запись целиком: устройству нужен cooldown_until для отображения таймера
	writeJSON(w, http.StatusCreated, map[string]any{
		"request": app,
		"message": "Request submitted. Cooldown period started.",
	})
}

// CheckStatus — GET /api/device/requests/{request_id}.
// Чужая заявка неотличима от несуществующей (404 в обоих случаях).
func (h *ApprovalHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.service.CheckStatus(r.Context(), deviceID, chi.URLParam(r, "request_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListMine — GET /api/device/requests: история заявок устройства.
func (h *ApprovalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.service.ListByDevice(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// ListPending — GET /api/management/requests: очередь решений.
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": list})
}

type resolveRequest struct {
	Status domain.ApprovalStatus `json:"status"` // "approved" или "denied"
	Notes  *string               `json:"notes,omitempty"`
}

// Resolve — PUT /api/management/requests/{id} (admin-периметр).
func (h *ApprovalHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	app, err := h.service.Resolve(r.Context(), adminID, chi.URLParam(r, "id"), req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Request " + string(app.Status),
		"request": app,
	})
}
