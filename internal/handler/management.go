package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/service"
)

// ManagementHandler — админский периметр: флот, политики, настройки, нарушения.
type ManagementHandler struct {
	devices *service.DeviceService
	policy  *service.PolicyService
}

func NewManagementHandler(d *service.DeviceService, p *service.PolicyService) *ManagementHandler {
	return &ManagementHandler{devices: d, policy: p}
}

// ListDevices — GET /api/management/devices.
func (h *ManagementHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// ListInstalledApps — GET /api/management/devices/{device_id}/apps.
func (h *ManagementHandler) ListInstalledApps(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")
	if uuid.Validate(deviceID) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid device_id format"})
		return
	}

	apps, err := h.policy.ListInstalledApps(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

// UpdateSettings — PUT /api/management/devices/{device_id}/settings.
// Частичное обновление: непереданные поля не трогаем.
func (h *ManagementHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")
	if uuid.Validate(deviceID) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid device_id format"})
		return
	}

	var patch domain.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	settings, err := h.devices.UpdateSettings(r.Context(), deviceID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Settings updated",
		"settings": settings,
	})
}

// SetAppPolicy — POST /api/management/policies/apps.
func (h *ManagementHandler) SetAppPolicy(w http.ResponseWriter, r *http.Request) {
	var p domain.AppPolicy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	out, err := h.policy.SetAppPolicy(r.Context(), &p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "App policy updated",
		"policy":  out,
	})
}

type addURLRequest struct {
	DeviceID    string `json:"device_id"`
	URLPattern  string `json:"url_pattern"`
	Description string `json:"description,omitempty"`
}

// AddBlockedURL — POST /api/management/policies/urls.
func (h *ManagementHandler) AddBlockedURL(w http.ResponseWriter, r *http.Request) {
	var req addURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	url, err := h.policy.AddBlockedURL(r.Context(), req.DeviceID, req.URLPattern, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "URL added to blacklist",
		"url":     url,
	})
}

// ListBlockedURLs — GET /api/management/policies/urls?device_id=...
func (h *ManagementHandler) ListBlockedURLs(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "device_id query parameter required"})
		return
	}

	urls, err := h.policy.ListBlockedURLs(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"urls": urls})
}

// RemoveBlockedURL — DELETE /api/management/policies/urls/{id}.
func (h *ManagementHandler) RemoveBlockedURL(w http.ResponseWriter, r *http.Request) {
	if err := h.policy.RemoveBlockedURL(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "URL removed from blacklist"})
}

// ListViolations — GET /api/management/violations?device_id=...
func (h *ManagementHandler) ListViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := h.devices.ListViolations(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"violations": violations})
}
