package validator

import (
	"errors"
	"strings"

	"app/internal/usecase"
)

var (
	// 明細が不正（数量0以下・空など）
	ErrInvalidLineItem = errors.New("invalid line item")

	// 配送先が不正
	ErrInvalidAddress = errors.New("invalid address")
)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// 注文明細の検証。カタログ照合はusecase側（価格解決と同じTx）で行う。
func (v *checkoutValidator) ValidateLines(lines []usecase.CheckoutLine) error {
	if len(lines) == 0 {
		return ErrInvalidLineItem
	}

	for _, l := range lines {
		if l.ProductID <= 0 {
			return ErrInvalidLineItem
		}
		//数量は正の整数のみ
		if l.Quantity <= 0 {
			return ErrInvalidLineItem
		}
	}
	return nil
}

func (v *checkoutValidator) ValidateAddress(addr usecase.ShippingAddressInput) error {
	if strings.TrimSpace(addr.RecipientName) == "" {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(addr.Phone) == "" {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(addr.AddressLine) == "" {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(addr.City) == "" {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(addr.Country) == "" {
		return ErrInvalidAddress
	}
	return nil
}
