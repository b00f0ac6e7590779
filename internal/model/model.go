// Package model содержит доменные сущности маркетплейса пикеров.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole описывает роль пользователя на площадке.
type UserRole string

const (
	UserRoleGeneral   UserRole = "general"
	UserRoleDeveloper UserRole = "developer"
)

// ParseUserRole разбирает роль пользователя, в том числе короткие формы gen/dev.
func ParseUserRole(s string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", "gen":
		return UserRoleGeneral, true
	case "developer", "dev":
		return UserRoleDeveloper, true
	}
	return "", false
}

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID            uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	Name          string    `json:"user_name"`
	Role          UserRole  `json:"user_type"`
	Balance       int64     `json:"premium_balance"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}

// PickerStatus описывает жизненный цикл пикера.
type PickerStatus string

const (
	PickerStatusActive   PickerStatus = "active"
	PickerStatusInactive PickerStatus = "inactive"
)

// Picker описывает цифровой артефакт, который продаётся на площадке.
type Picker struct {
	ID            uuid.UUID    `json:"picker_id"`
	DeveloperID   uuid.UUID    `json:"dev_user_id"`
	Alias         string       `json:"alias"`
	Description   string       `json:"description"`
	Price         int64        `json:"price"`
	Version       string       `json:"version"`
	ImagePath     string       `json:"image_path"`
	FilePath      string       `json:"-"`
	Status        PickerStatus `json:"status"`
	DownloadCount int64        `json:"download_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentInternalBalance PaymentMethod = "internal_balance"
	PaymentExternalWallet  PaymentMethod = "external_wallet"
)

// ParsePaymentMethod разбирает способ оплаты. Помимо канонических значений
// принимаются premium и wallet, которые использует десктоп-клиент.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PaymentInternalBalance), "premium":
		return PaymentInternalBalance, true
	case string(PaymentExternalWallet), "wallet":
		return PaymentExternalWallet, true
	}
	return "", false
}

// OrderStatus описывает статус заказа. Неудачные попытки покупки
// не сохраняются, поэтому отдельного статуса для них нет.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// ParseOrderStatus разбирает статус заказа.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(s))) {
	case OrderStatusPending:
		return OrderStatusPending, true
	case OrderStatusCompleted, "success":
		return OrderStatusCompleted, true
	}
	return "", false
}

// Order описывает заказ пользователя на покупку пикера.
type Order struct {
	ID            uuid.UUID     `json:"order_id"`
	BuyerID       uuid.UUID     `json:"user_id"`
	PickerID      uuid.UUID     `json:"picker_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"pay_type"`
	Status        OrderStatus   `json:"status"`
	ExternalTxRef *string       `json:"tx_hash,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

// OrderView дополняет заказ данными пикера для выдачи клиенту.
type OrderView struct {
	Order
	PickerAlias string `json:"picker_alias"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page описывает параметры постраничной выборки.
type Page struct {
	Number int
	Size   int
}

// NewPage нормализует номер и размер страницы.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset возвращает смещение первой записи страницы.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasNext сообщает, есть ли записи после текущей страницы.
func (p Page) HasNext(total int64) bool {
	return int64(p.Number*p.Size) < total
}
