package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{in: "internal_balance", want: PaymentInternalBalance, ok: true},
		{in: "Premium", want: PaymentInternalBalance, ok: true},
		{in: "external_wallet", want: PaymentExternalWallet, ok: true},
		{in: " wallet ", want: PaymentExternalWallet, ok: true},
		{in: "card", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePaymentMethod(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(0, 0)
	assert.Equal(t, Page{Number: 1, Size: 10}, p)
	assert.Equal(t, 0, p.Offset())

	p = NewPage(3, 500)
	assert.Equal(t, 100, p.Size)
	assert.Equal(t, 200, p.Offset())

	p = NewPage(2, 10)
	assert.True(t, p.HasNext(21))
	assert.False(t, p.HasNext(20))
}

func TestAppErrorCategories(t *testing.T) {
	err := fmt.Errorf("create order: %w", InsufficientFunds("insufficient balance"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "insufficient balance", PublicMessage(err))

	cause := errors.New("duplicate key value violates unique constraint \"orders_pkey\"")
	perr := Persistence(cause)
	assert.True(t, errors.Is(perr, ErrPersistence))
	assert.True(t, errors.Is(perr, cause))
	assert.Equal(t, "database error", PublicMessage(perr))

	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
}
