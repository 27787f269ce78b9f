package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 管理者用の一覧絞り込み
type AdminOrderListFilter struct {
	Page              int
	Limit             int
	FulfillmentStatus string
	PaymentMethod     string
	IsPaid            *bool
	From              *time.Time
	To                *time.Time
}

// 読み取りだけの約束。Return-URL検証やポーリング用の
// ユースケースにはこちらを渡し、書き込み経路を型で遮断する。
type OrderReader interface {
	FindByOrderID(ctx context.Context, orderID string) (model.Order, error)
}

type OrderRepository interface {
	OrderReader

	Create(ctx context.Context, order model.Order) (int64, error)

	// is_paid=false の行だけを条件付きUPDATEで支払い済みにする。
	// 更新できたら true。既に支払い済みなら false（エラーではない）。
	MarkPaidIfUnpaid(ctx context.Context, orderID string, result model.PaymentResult, paidAt time.Time) (bool, error)

	// fulfillment_status が from の行だけを to へ条件付きUPDATEする。
	// 競合した側は false を受け取って読み直す。
	UpdateFulfillmentStatusIf(ctx context.Context, orderID string, from model.FulfillmentStatus, to model.FulfillmentStatus) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
