// Package order оформляет покупку пикера.
//
// Покупка выполняется в одной транзакции хранилища: запись заказа,
// списание баланса и увеличение счётчика скачиваний либо фиксируются
// вместе, либо не фиксируется ничего. Различия между способами оплаты
// вынесены в стратегии, общий порядок шагов задаёт Engine.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/metrics"
	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/repository"
)

// DefaultPendingTTL срок, в течение которого ожидающий заказ
// должен быть подтверждён внешним кошельком.
const DefaultPendingTTL = time.Hour

// Store хранилище, с которым работает Engine.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetPicker(ctx context.Context, id uuid.UUID, activeOnly bool) (*model.Picker, error)
	InTx(ctx context.Context, fn func(tx repository.OrderTx) error) error
}

// Engine выполняет покупку пикера.
type Engine struct {
	store      Store
	clock      clock.Clock
	pendingTTL time.Duration
	logger     *zap.Logger
	metrics    *metrics.Collector
	strategies map[model.PaymentMethod]strategy
}

// NewEngine создаёт Engine. Нулевой pendingTTL заменяется на DefaultPendingTTL.
func NewEngine(store Store, c clock.Clock, pendingTTL time.Duration, logger *zap.Logger, m *metrics.Collector) *Engine {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Engine{
		store:      store,
		clock:      c,
		pendingTTL: pendingTTL,
		logger:     logger,
		metrics:    m,
		strategies: map[model.PaymentMethod]strategy{
			model.PaymentInternalBalance: internalBalance{},
			model.PaymentExternalWallet:  externalWallet{ttl: pendingTTL},
		},
	}
}

// Purchase покупает пикер pickerID для пользователя buyerID.
//
// При оплате с внутреннего баланса заказ сразу завершается, баланс
// уменьшается на цену, а счётчик скачиваний растёт на единицу. При оплате
// внешним кошельком заказ остаётся в статусе pending со ссылкой на
// транзакцию. Неудачная попытка не оставляет следов в хранилище.
func (e *Engine) Purchase(ctx context.Context, buyerID, pickerID uuid.UUID, method model.PaymentMethod) (*model.Order, error) {
	s, ok := e.strategies[method]
	if !ok {
		e.metrics.RecordOrder(string(method), metrics.ResultRejected)
		return nil, model.BadRequest("unsupported payment method")
	}

	buyer, err := e.store.GetUserByID(ctx, buyerID)
	if err != nil {
		return nil, e.fail(method, "load buyer", err)
	}

	picker, err := e.store.GetPicker(ctx, pickerID, true)
	if err != nil {
		return nil, e.fail(method, "load picker", err)
	}

	if err := s.check(buyer, picker); err != nil {
		return nil, e.fail(method, "check", err)
	}

	now := e.clock.Now().UTC()
	o := &model.Order{
		ID:        uuid.New(),
		BuyerID:   buyer.ID,
		PickerID:  picker.ID,
		Amount:    picker.Price,
		Method:    method,
		Status:    model.OrderStatusPending,
		CreatedAt: now,
	}
	s.prepare(o, now)

	err = e.store.InTx(ctx, func(tx repository.OrderTx) error {
		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return s.settle(ctx, tx, o)
	})
	if err != nil {
		return nil, e.fail(method, "transaction", err)
	}

	result := metrics.ResultPending
	if o.Status == model.OrderStatusCompleted {
		result = metrics.ResultCompleted
	}
	e.metrics.RecordOrder(string(method), result)

	e.logger.Info("order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("picker_id", pickerID.String()),
		zap.String("method", string(method)),
		zap.String("status", string(o.Status)),
		zap.Int64("amount", o.Amount),
	)

	return o, nil
}

// fail переводит ошибку хранилища в прикладную и фиксирует,
// на каком шаге покупка прервалась.
func (e *Engine) fail(method model.PaymentMethod, stage string, err error) error {
	appErr := translate(err)

	result := metrics.ResultError
	switch {
	case errors.Is(appErr, model.ErrNotFound):
		result = metrics.ResultNotFound
	case errors.Is(appErr, model.ErrInsufficientFunds):
		result = metrics.ResultInsufficientFunds
	case errors.Is(appErr, model.ErrBadRequest), errors.Is(appErr, model.ErrForbidden):
		result = metrics.ResultRejected
	}
	e.metrics.RecordOrder(string(method), result)

	if result == metrics.ResultError {
		e.logger.Error("order aborted", zap.String("stage", stage), zap.String("method", string(method)), zap.Error(err))
	} else {
		e.logger.Info("order rejected", zap.String("stage", stage), zap.String("method", string(method)), zap.Error(err))
	}

	return appErr
}

func translate(err error) error {
	var appErr *model.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrInsufficientBalance):
		return model.InsufficientFunds("insufficient balance")
	case errors.Is(err, repository.ErrUserNotFound):
		return model.NotFound("user not found")
	case errors.Is(err, repository.ErrPickerNotFound):
		return model.NotFound("picker not found")
	default:
		return model.Persistence(err)
	}
}
