package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/service"
)

type birthInfoRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
}

// SaveBirthInfo сохраняет имя и дату рождения устройства.
func (h *Handler) SaveBirthInfo(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req birthInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.SaveBirthInfo(r.Context(), deviceID, req.Name, req.BirthDate)
	if err != nil {
		if errors.Is(err, service.ErrInvalidBirthDate) || errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.internalError(w, "save birth info", err, zap.String("device_id", deviceID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBirthInfo возвращает сохранённые данные о рождении или 204, если их нет.
func (h *Handler) GetBirthInfo(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	info, found := h.service.BirthInfo(r.Context(), deviceID)
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

// ClearBirthInfo удаляет данные о рождении и гороскоп.
func (h *Handler) ClearBirthInfo(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearBirthInfo(r.Context(), deviceID); err != nil {
		h.internalError(w, "clear birth info", err, zap.String("device_id", deviceID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDailyFortune возвращает гороскоп на сегодня.
func (h *Handler) GetDailyFortune(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	fortune, err := h.service.DailyFortune(r.Context(), deviceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBirthInfoRequired):
			http.Error(w, http.StatusText(http.StatusPreconditionFailed), http.StatusPreconditionFailed)
		case errors.Is(err, service.ErrLLMUnavailable):
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.internalError(w, "daily fortune", err, zap.String("device_id", deviceID))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, fortune)
}

// ClearDailyFortune удаляет закэшированный гороскоп.
func (h *Handler) ClearDailyFortune(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearDailyFortune(r.Context(), deviceID); err != nil {
		h.internalError(w, "clear daily fortune", err, zap.String("device_id", deviceID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
