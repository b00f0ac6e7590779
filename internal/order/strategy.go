package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/repository"
)

// strategy описывает различия между способами оплаты.
type strategy interface {
	// check выполняется до транзакции и отсекает заведомо невозможную покупку.
	check(buyer *model.User, picker *model.Picker) error
	// prepare заполняет поля заказа перед сохранением.
	prepare(o *model.Order, now time.Time)
	// settle выполняется в транзакции после записи заказа. Ошибка
	// каждого шага оборачивается его названием.
	settle(ctx context.Context, tx repository.OrderTx, o *model.Order) error
}

type internalBalance struct{}

func (internalBalance) check(buyer *model.User, picker *model.Picker) error {
	if buyer.Balance < picker.Price {
		return model.InsufficientFunds("insufficient balance")
	}
	return nil
}

func (internalBalance) prepare(*model.Order, time.Time) {}

func (internalBalance) settle(ctx context.Context, tx repository.OrderTx, o *model.Order) error {
	if err := tx.DebitBalance(ctx, o.BuyerID, o.Amount); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	if err := tx.CompleteOrder(ctx, o.ID); err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	o.Status = model.OrderStatusCompleted

	if err := tx.IncrementDownloadCount(ctx, o.PickerID); err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	return nil
}

// externalWallet оставляет заказ ожидать подтверждения из сети.
// Баланс и счётчик скачиваний при этом не меняются.
type externalWallet struct {
	ttl time.Duration
}

// check ничего не проверяет: наличие средств подтверждает внешняя система.
func (externalWallet) check(*model.User, *model.Picker) error { return nil }

func (w externalWallet) prepare(o *model.Order, now time.Time) {
	ref := uuid.NewString()
	expires := now.Add(w.ttl)
	o.ExternalTxRef = &ref
	o.ExpiresAt = &expires
}

func (externalWallet) settle(context.Context, repository.OrderTx, *model.Order) error {
	return nil
}
