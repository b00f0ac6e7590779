package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createOrderRequest struct {
	PickerID string `json:"picker_id"`
	PayType  string `json:"pay_type"`
}

// CreateOrder оформляет покупку пикера текущим пользователем.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pickerID, ok := pathUUID(w, req.PickerID, "picker id")
	if !ok {
		return
	}

	o, err := h.service.CreateOrder(r.Context(), userID, pickerID, req.PayType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// ListOrders возвращает заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListOrders(r.Context(), userID, r.URL.Query().Get("status"), pageFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetOrder возвращает заказ текущего пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

type downloadTokenResponse struct {
	Token       string    `json:"token"`
	OrderID     uuid.UUID `json:"order_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	DownloadURL string    `json:"download_url"`
}

// IssueDownloadToken выдаёт токен скачивания для оплаченного заказа.
func (h *Handler) IssueDownloadToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	t, err := h.service.IssueDownloadToken(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, downloadTokenResponse{
		Token:       t.Token,
		OrderID:     t.OrderID,
		ExpiresAt:   t.ExpiresAt,
		DownloadURL: "/download?token=" + url.QueryEscape(t.Token),
	})
}

// Download отдаёт файл пикера по токену скачивания.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.ResolveDownload(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.ServeDownload(w, r, p); err != nil {
		h.writeError(w, r, err)
		return
	}
}
