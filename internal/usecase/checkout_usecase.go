package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

// リダイレクトURL組み立ての約束。gateway.Adapterが実装する。
type PaymentURLBuilder interface {
	BuildPaymentURL(req gateway.PaymentRequest) (string, error)
}

// 入力の検証の約束。validatorパッケージが実装する。
type CheckoutValidator interface {
	ValidateLines(lines []CheckoutLine) error
	ValidateAddress(addr ShippingAddressInput) error
}

type CheckoutLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type ShippingAddressInput struct {
	RecipientName string  `json:"recipient_name"`
	Phone         string  `json:"phone"`
	AddressLine   string  `json:"address_line"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
}

type PlaceOrderInput struct {
	Lines         []CheckoutLine
	Address       ShippingAddressInput
	PaymentMethod string
	ClientIP      string
	Locale        string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	OrderID           string            `json:"order_id"`
	PaymentMethod     string            `json:"payment_method"`
	ItemsPrice        int64             `json:"items_price"`
	ShippingPrice     int64             `json:"shipping_price"`
	TaxPrice          int64             `json:"tax_price"`
	TotalPrice        int64             `json:"total_price"`
	IsPaid            bool              `json:"is_paid"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	CreatedAt         time.Time         `json:"created_at"`
	Items             []OrderItemOutput `json:"items"`
}

type PlaceOrderOutput struct {
	Order OrderOutput `json:"order"`

	// GATEWAY払いのときだけ入る。代引きでは空。
	PaymentURL string `json:"payment_url,omitempty"`
}

// 注文の作成（価格計算＋1トランザクションでの書き込み）。
// ゲートウェイには一切触らない。URL組み立てはコミット後の純関数呼び出し。
type CheckoutUsecase struct {
	tx          repo.TransactionManager
	validator   CheckoutValidator
	urlBuilder  PaymentURLBuilder
	idGen       IDGenerator
	clock       Clock
	shippingFee int64
	taxRate     float64
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	validator CheckoutValidator,
	urlBuilder PaymentURLBuilder,
	idGen IDGenerator,
	clock Clock,
	shippingFee int64,
	taxRate float64,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:          tx,
		validator:   validator,
		urlBuilder:  urlBuilder,
		idGen:       idGen,
		clock:       clock,
		shippingFee: shippingFee,
		taxRate:     taxRate,
	}
}

// orderId衝突時のリトライ上限。衝突は致命条件なので上書きはしない。
const maxOrderIDAttempts = 3

func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if err := u.validator.ValidateLines(in.Lines); err != nil {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := u.validator.ValidateAddress(in.Address); err != nil {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	method := model.PaymentMethod(in.PaymentMethod)
	if !method.Valid() {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}

	var out PlaceOrderOutput
	var lastErr error

	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		orderID := u.idGen.NewID()

		err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			now := u.clock.Now()

			//カタログ価格を注文時点で解決してスナップショット
			orderItems := make([]model.OrderItem, 0, len(in.Lines))
			var itemsPrice int64 = 0

			for _, line := range in.Lines {
				p, err := r.Products().FindByID(ctx, line.ProductID)
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusBadRequest, "invalid line item")
				}
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if !p.IsActive {
					return NewHTTPError(http.StatusBadRequest, "invalid line item")
				}

				orderItems = append(orderItems, model.OrderItem{
					ProductID:           p.ID,
					ProductNameSnapshot: p.Name,
					UnitPriceSnapshot:   p.Price,
					Quantity:            line.Quantity,
					CreatedAt:           now,
				})
				itemsPrice += p.Price * line.Quantity
			}

			taxPrice := roundTax(itemsPrice, u.taxRate)
			totalPrice := itemsPrice + u.shippingFee + taxPrice

			order := model.Order{
				OrderID:           orderID,
				RecipientName:     in.Address.RecipientName,
				Phone:             in.Address.Phone,
				AddressLine:       in.Address.AddressLine,
				City:              in.Address.City,
				Country:           in.Address.Country,
				Latitude:          in.Address.Latitude,
				Longitude:         in.Address.Longitude,
				PaymentMethod:     method,
				ItemsPrice:        itemsPrice,
				ShippingPrice:     u.shippingFee,
				TaxPrice:          taxPrice,
				TotalPrice:        totalPrice,
				IsPaid:            false,
				FulfillmentStatus: model.FulfillmentPending,
				CreatedAt:         now,
				UpdatedAt:         now,
			}

			id, err := r.Orders().Create(ctx, order)
			if err != nil {
				return err
			}

			if err := r.OrderItems().CreateBulk(ctx, id, orderItems); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			order.ID = id
			out.Order = toOrderOutput(order, orderItems)
			return nil
		})

		if err == nil {
			lastErr = nil
			break
		}

		//orderIdのunique衝突だけ新しいIDで引き直す
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			continue
		}
		if _, ok := AsHTTPError(err); ok {
			return PlaceOrderOutput{}, err
		}
		return PlaceOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if lastErr != nil {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "order id collision")
	}

	//GATEWAY払いはリダイレクトURLを添えて返す（状態は書かない）
	if method == model.PaymentMethodGateway {
		payURL, err := u.urlBuilder.BuildPaymentURL(gateway.PaymentRequest{
			OrderRef:   out.Order.OrderID,
			Amount:     out.Order.TotalPrice,
			OrderInfo:  fmt.Sprintf("Thanh toan don hang %s", out.Order.OrderID),
			ClientIP:   in.ClientIP,
			Locale:     in.Locale,
			CreateTime: u.clock.Now(),
		})
		if err != nil {
			return PlaceOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "payment url error")
		}
		out.PaymentURL = payURL
	}

	return out, nil
}

// 税額は通貨単位に丸める（四捨五入）
func roundTax(itemsPrice int64, rate float64) int64 {
	if rate == 0 {
		return 0
	}
	v := float64(itemsPrice) * rate
	return int64(v + 0.5)
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		OrderID:           o.OrderID,
		PaymentMethod:     string(o.PaymentMethod),
		ItemsPrice:        o.ItemsPrice,
		ShippingPrice:     o.ShippingPrice,
		TaxPrice:          o.TaxPrice,
		TotalPrice:        o.TotalPrice,
		IsPaid:            o.IsPaid,
		PaidAt:            o.PaidAt,
		FulfillmentStatus: string(o.FulfillmentStatus),
		CreatedAt:         o.CreatedAt,
		Items:             outItems,
	}
}
