package usecase

import (
	"context"
	"net/http"
	"strings"

	repo "app/internal/repository"
)

// ポーリング用の読み取り形。
type OrderStatusOutput struct {
	OrderID           string `json:"order_id"`
	IsPaid            bool   `json:"is_paid"`
	PaymentStatus     string `json:"payment_status,omitempty"`
	FulfillmentStatus string `json:"fulfillment_status"`
}

// 注文の読み取り専用ユースケース。
type OrderUsecase struct {
	orders repo.OrderReader
	tx     repo.TransactionManager
}

func NewOrderUsecase(orders repo.OrderReader, tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{orders: orders, tx: tx}
}

// GetStatus はポーリングされる前提の軽い読み取り。
func (u *OrderUsecase) GetStatus(ctx context.Context, orderID string) (OrderStatusOutput, error) {
	if strings.TrimSpace(orderID) == "" {
		return OrderStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := u.orders.FindByOrderID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderStatusOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderStatusOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return OrderStatusOutput{
		OrderID:           o.OrderID,
		IsPaid:            o.IsPaid,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: string(o.FulfillmentStatus),
	}, nil
}

func (u *OrderUsecase) GetDetail(ctx context.Context, orderID string) (OrderOutput, error) {
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
