// Package handler содержит HTTP-обработчики API маркетплейса пикеров.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/middleware"
	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, email, name, role string) (*model.User, error)
	ResendCode(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (string, *model.User, error)
	Login(ctx context.Context, email string) (string, *model.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)

	UploadPicker(ctx context.Context, developerID uuid.UUID, in service.PickerUpload) (*model.Picker, error)
	ListPickers(ctx context.Context, keyword string, page model.Page) (*service.PickerList, error)
	GetPicker(ctx context.Context, id uuid.UUID) (*model.Picker, error)
	DeactivatePicker(ctx context.Context, developerID, pickerID uuid.UUID) error

	CreateOrder(ctx context.Context, buyerID, pickerID uuid.UUID, method string) (*model.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, status string, page model.Page) (*service.OrderList, error)
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.OrderView, error)
	IssueDownloadToken(ctx context.Context, buyerID, orderID uuid.UUID) (*credstore.DownloadToken, error)
	ResolveDownload(ctx context.Context, token string) (*model.Picker, error)
	ServeDownload(w http.ResponseWriter, r *http.Request, p *model.Picker) error
}

// Options дополнительные компоненты маршрутизатора. Нулевые значения отключают их.
type Options struct {
	OrderLimiter *middleware.RateLimiter
	Metrics      http.Handler
	HTTPMetrics  func(http.Handler) http.Handler
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor возвращает HTTP-статус для категории ошибки.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает клиенту JSON с сообщением об ошибке. Внутренние
// подробности попадают только в журнал.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: model.PublicMessage(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.BadRequest("invalid request body")
	}
	return nil
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing authorization token"})
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pageFromQuery читает параметры page и size. Некорректные значения
// заменяются значениями по умолчанию.
func pageFromQuery(r *http.Request) model.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return model.NewPage(number, size)
}
