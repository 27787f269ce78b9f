package model

import "time"

// 支払い方法（代引き or 外部ゲートウェイ）。閉じた列挙。
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodGateway PaymentMethod = "GATEWAY"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodGateway
}

// 配送ステータス。支払いサブマシンとは独立に進む。
type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "PENDING"
	FulfillmentProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentShipped    FulfillmentStatus = "SHIPPED"
	FulfillmentDelivered  FulfillmentStatus = "DELIVERED"
	FulfillmentCancelled  FulfillmentStatus = "CANCELLED"
)

// DELIVERED / CANCELLED は終端
func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentDelivered || s == FulfillmentCancelled
}

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentPending, FulfillmentProcessing, FulfillmentShipped, FulfillmentDelivered, FulfillmentCancelled:
		return true
	}
	return false
}

// IPNが書き込む支払い結果の値。テーブルにはしない。
type PaymentResult struct {
	GatewayTxnID string
	Status       string
	BankCode     string
}

// 注文本体。作成後に書いてよいのは
// 支払い結果（IPN検証ユースケース）と配送ステータス（管理API）だけ。
type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"-"`

	// 外部公開ID。作成時に採番して以後不変。内部主キーとは別物。
	OrderID string `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`

	// 配送先スナップショット
	RecipientName string  `gorm:"type:varchar(255);not null" json:"recipient_name"`
	Phone         string  `gorm:"type:varchar(32);not null" json:"phone"`
	AddressLine   string  `gorm:"type:varchar(255);not null" json:"address_line"`
	City          string  `gorm:"type:varchar(128);not null" json:"city"`
	Country       string  `gorm:"type:varchar(64);not null" json:"country"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	// 金額は注文時点のスナップショット。以後再計算しない。
	// total_price = items_price + shipping_price + tax_price
	ItemsPrice    int64 `gorm:"not null" json:"items_price"`
	ShippingPrice int64 `gorm:"not null" json:"shipping_price"`
	TaxPrice      int64 `gorm:"not null" json:"tax_price"`
	TotalPrice    int64 `gorm:"not null" json:"total_price"`

	// 支払い結果。未払い→支払い済みの一方向のみ。
	IsPaid           bool       `gorm:"not null;default:false" json:"is_paid"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	GatewayTxnID     string     `gorm:"type:varchar(64)" json:"gateway_txn_id,omitempty"`
	PaymentStatus    string     `gorm:"type:varchar(32)" json:"payment_status,omitempty"`
	BankCode         string     `gorm:"type:varchar(32)" json:"bank_code,omitempty"`
	PaymentUpdatedAt *time.Time `json:"payment_updated_at,omitempty"`

	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(20);not null;index" json:"fulfillment_status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
