package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/pickers-market/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	UserType string `json:"user_type"`
}

type registerResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.service.Register(r.Context(), req.Email, req.UserName, req.UserType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		UserID:  u.ID,
		Message: "verification code sent to email",
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendCode выдаёт новый код подтверждения.
func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.ResendCode(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent to email"})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Verify подтверждает email кодом и выдаёт токен доступа.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, u, err := h.service.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: u})
}

// Login выдаёт токен доступа по email.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: u})
}

// Profile возвращает профиль текущего пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}
