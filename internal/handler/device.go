package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra/auth"
	"github.com/xela07ax/devguard/internal/service"
)

// DeviceHandler — эндпоинты, которые дергает само устройство.
type DeviceHandler struct {
	service *service.DeviceService
	policy  *service.PolicyService
}

func NewDeviceHandler(s *service.DeviceService, p *service.PolicyService) *DeviceHandler {
	return &DeviceHandler{service: s, policy: p}
}

// Register — POST /api/device/register (публичный, идемпотентный).
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	resp, created, err := h.service.Register(r.Context(), req.DeviceName, req.AndroidID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    resp,
	})
}

// GetPolicies — GET /api/device/policies: полный снимок политик.
func (h *DeviceHandler) GetPolicies(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bundle, err := h.service.GetPolicyBundle(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// GetURLs — GET /api/device/urls: черный список устройства.
func (h *DeviceHandler) GetURLs(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	urls, err := h.policy.ListBlockedURLs(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, urls)
}

// Heartbeat — POST /api/device/heartbeat.
func (h *DeviceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.Heartbeat(r.Context(), deviceID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type violationRequest struct {
	ViolationType string         `json:"violation_type"`
	Details       map[string]any `json:"details,omitempty"`
}

// ReportViolation — POST /api/device/violations.
// Ответ мгновенный: запись уходит в асинхронный буфер.
func (h *DeviceHandler) ReportViolation(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req violationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	if err := h.service.ReportViolation(r.Context(), deviceID, req.ViolationType, req.Details); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Violation logged"})
}

// ReportViolationsBatch — POST /api/device/violations/batch.
func (h *DeviceHandler) ReportViolationsBatch(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := auth.DeviceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var reqs []violationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "violations must be an array"})
		return
	}

	events := make([]domain.Violation, 0, len(reqs))
	for _, v := range reqs {
		events = append(events, domain.Violation{
			ViolationType: v.ViolationType,
			Details:       v.Details,
		})
	}

	if err := h.service.ReportViolationsBatch(r.Context(), deviceID, events); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
