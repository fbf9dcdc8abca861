package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/service"
)

type chatRequest struct {
	Message string           `json:"message"`
	History []model.ChatTurn `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat отвечает на сообщение AI-консультации.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	reply, err := h.service.Chat(r.Context(), deviceID, req.Message, req.History)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, service.ErrLLMUnavailable):
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.internalError(w, "chat", err, zap.String("device_id", deviceID))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
