package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/repository"
	"github.com/sajuking/sajuking-server/internal/service"
)

type worryRequest struct {
	Nickname string `json:"nickname"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

type worryResponse struct {
	ID        int64   `json:"id"`
	Nickname  string  `json:"nickname"`
	Category  string  `json:"category"`
	Content   string  `json:"content"`
	Summary   *string `json:"summary,omitempty"`
	ViewCount int64   `json:"viewCount"`
	CreatedAt string  `json:"createdAt"`
}

func newWorryResponse(w *model.Worry) worryResponse {
	return worryResponse{
		ID:        w.ID,
		Nickname:  w.Nickname,
		Category:  w.Category,
		Content:   w.Content,
		Summary:   w.Summary,
		ViewCount: w.ViewCount,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}

// CreateWorry публикует запись в сообществе.
func (h *Handler) CreateWorry(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req worryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	worry, err := h.service.CreateWorry(r.Context(), deviceID, req.Nickname, req.Category, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.internalError(w, "create worry", err, zap.String("device_id", deviceID))
		return
	}

	h.writeJSON(w, http.StatusCreated, newWorryResponse(worry))
}

// ListWorries возвращает записи сообщества, новые первыми.
func (h *Handler) ListWorries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	worries, err := h.service.ListWorries(r.Context(), q.Get("category"), limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.internalError(w, "list worries", err)
		return
	}

	resp := make([]worryResponse, 0, len(worries))
	for i := range worries {
		resp = append(resp, newWorryResponse(&worries[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetWorry возвращает запись сообщества и учитывает просмотр.
func (h *Handler) GetWorry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "worryID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	worry, err := h.service.GetWorry(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrWorryNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.internalError(w, "get worry", err, zap.Int64("worry_id", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newWorryResponse(worry))
}
