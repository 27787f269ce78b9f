package repository

import (
	"context"

	"app/internal/domain/model"
)

// カタログ読み取りの約束。注文作成時の価格解決にだけ使う。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
