package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByOrderID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

// 「未払いの場合だけ支払い済みにする」を1回のUPDATEで行う。
// 同じIPNが並行で2回届いても勝者は1つ。負けた側は false を見る。
func (r *OrderGormRepository) MarkPaidIfUnpaid(ctx context.Context, orderID string, result model.PaymentResult, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND is_paid = ?", orderID, false).
		Updates(map[string]interface{}{
			"is_paid":            true,
			"paid_at":            paidAt,
			"gateway_txn_id":     result.GatewayTxnID,
			"payment_status":     result.Status,
			"bank_code":          result.BankCode,
			"payment_updated_at": paidAt,
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// fulfillment_status が from の行だけ to へ更新する。
// RowsAffected==0 は競合（または不存在）なので呼び出し側で読み直す。
func (r *OrderGormRepository) UpdateFulfillmentStatusIf(ctx context.Context, orderID string, from model.FulfillmentStatus, to model.FulfillmentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND fulfillment_status = ?", orderID, from).
		Update("fulfillment_status", to)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//fulfillment_status 絞り込み
	if f.FulfillmentStatus != "" {
		q = q.Where("fulfillment_status = ?", f.FulfillmentStatus)
	}

	//支払い方法 絞り込み
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}

	//支払い済みかどうか
	if f.IsPaid != nil {
		q = q.Where("is_paid = ?", *f.IsPaid)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
