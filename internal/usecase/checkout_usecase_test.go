package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	products   repo.ProductRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Products() repo.ProductRepository     { return r.products }

type CheckoutOrderRepoMock struct{ mock.Mock }

func (m *CheckoutOrderRepoMock) FindByOrderID(ctx context.Context, orderID string) (model.Order, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CheckoutOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CheckoutOrderRepoMock) MarkPaidIfUnpaid(ctx context.Context, orderID string, result model.PaymentResult, paidAt time.Time) (bool, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CheckoutOrderRepoMock) UpdateFulfillmentStatusIf(ctx context.Context, orderID string, from model.FulfillmentStatus, to model.FulfillmentStatus) (bool, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CheckoutOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used in CheckoutUsecase tests")
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	panic("not used in CheckoutUsecase tests")
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

// URL組み立てのスタブ。渡された入力を覚えて固定URLを返す。
type urlBuilderStub struct {
	gotReq gateway.PaymentRequest
	url    string
	err    error
}

func (s *urlBuilderStub) BuildPaymentURL(req gateway.PaymentRequest) (string, error) {
	s.gotReq = req
	return s.url, s.err
}

// 採番のスタブ。呼ばれるたびに次のIDを返す。
type idGenStub struct {
	ids  []string
	next int
}

func (g *idGenStub) NewID() string {
	id := g.ids[g.next%len(g.ids)]
	g.next++
	return id
}

// =====================
// helpers
// =====================

func newCheckoutFixture(shippingFee int64, taxRate float64) (*usecase.CheckoutUsecase, *TxManagerMock, *CheckoutOrderRepoMock, *OrderItemRepoMock, *ProductRepoMock, *urlBuilderStub, *idGenStub) {
	orders := new(CheckoutOrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	tx := &TxManagerMock{Repos: &TxReposMock{orders: orders, orderItems: orderItems, products: products}}
	tx.On("WithinTx", mock.Anything).Return(nil)

	builder := &urlBuilderStub{url: "https://sandbox.gateway.example/pay?signed=1"}
	idGen := &idGenStub{ids: []string{"order-520"}}

	uc := usecase.NewCheckoutUsecase(
		tx,
		validator.NewCheckoutValidator(),
		builder,
		idGen,
		&fixedClock{now: testNow},
		shippingFee,
		taxRate,
	)
	return uc, tx, orders, orderItems, products, builder, idGen
}

func validAddress() usecase.ShippingAddressInput {
	return usecase.ShippingAddressInput{
		RecipientName: "Nguyen Van A",
		Phone:         "0900000000",
		AddressLine:   "1 Le Loi",
		City:          "Ha Noi",
		Country:       "VN",
	}
}

// =====================
// tests
// =====================

// カート合計500,000＋送料20,000＋税0 → 520,000。
// 代引きは支払いURLなし・未払いのままPENDINGで作られる。
func TestPlaceOrder_COD_TotalInvariant(t *testing.T) {
	uc, _, orders, orderItems, products, builder, _ := newCheckoutFixture(20000, 0)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Ao thun", Price: 250000, IsActive: true}, nil)

	var created model.Order
	orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Order) }).
		Return(int64(7), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(7), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		Lines:         []usecase.CheckoutLine{{ProductID: 1, Quantity: 2}},
		Address:       validAddress(),
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	assert.NoError(t, err)
	assert.Equal(t, "order-520", out.Order.OrderID)
	assert.Equal(t, int64(500000), out.Order.ItemsPrice)
	assert.Equal(t, int64(20000), out.Order.ShippingPrice)
	assert.Equal(t, int64(0), out.Order.TaxPrice)
	assert.Equal(t, int64(520000), out.Order.TotalPrice)

	//書き込まれた値でも不変条件が成り立つ
	assert.Equal(t, created.ItemsPrice+created.ShippingPrice+created.TaxPrice, created.TotalPrice)

	//代引き：未払いのまま・URLなし・ゲートウェイには触らない
	assert.False(t, out.Order.IsPaid)
	assert.Equal(t, string(model.FulfillmentPending), out.Order.FulfillmentStatus)
	assert.Empty(t, out.PaymentURL)
	assert.Equal(t, gateway.PaymentRequest{}, builder.gotReq)
}

func TestPlaceOrder_Gateway_ReturnsPaymentURL(t *testing.T) {
	uc, _, orders, orderItems, products, builder, _ := newCheckoutFixture(20000, 0)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Ao thun", Price: 250000, IsActive: true}, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(7), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(7), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		Lines:         []usecase.CheckoutLine{{ProductID: 1, Quantity: 2}},
		Address:       validAddress(),
		PaymentMethod: string(model.PaymentMethodGateway),
		ClientIP:      "203.0.113.7",
		Locale:        "vn",
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://sandbox.gateway.example/pay?signed=1", out.PaymentURL)

	//アダプタに渡るのは注文のtotalPriceと公開ID
	assert.Equal(t, "order-520", builder.gotReq.OrderRef)
	assert.Equal(t, int64(520000), builder.gotReq.Amount)
	assert.Equal(t, "203.0.113.7", builder.gotReq.ClientIP)
}

func TestPlaceOrder_TaxRate(t *testing.T) {
	uc, _, orders, orderItems, products, _, _ := newCheckoutFixture(0, 0.1)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Sach", Price: 100000, IsActive: true}, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(8), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(8), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		Lines:         []usecase.CheckoutLine{{ProductID: 1, Quantity: 1}},
		Address:       validAddress(),
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(10000), out.Order.TaxPrice)
	assert.Equal(t, int64(110000), out.Order.TotalPrice)
}

func TestPlaceOrder_RejectsBadLines(t *testing.T) {
	uc, tx, _, _, _, _, _ := newCheckoutFixture(20000, 0)

	cases := [][]usecase.CheckoutLine{
		{},                             //空
		{{ProductID: 1, Quantity: 0}},  //数量0
		{{ProductID: 1, Quantity: -1}}, //負数
		{{ProductID: 0, Quantity: 1}},  //参照なし
	}

	for _, lines := range cases {
		_, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
			Lines:         lines,
			Address:       validAddress(),
			PaymentMethod: string(model.PaymentMethodCOD),
		})
		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok)
		assert.Equal(t, 400, he.Status)
	}

	//検証で落ちたらTxまで行かない
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestPlaceOrder_UnknownOrInactiveProduct(t *testing.T) {
	uc, _, _, _, products, _, _ := newCheckoutFixture(20000, 0)

	products.On("FindByID", mock.Anything, int64(404)).Return(model.Product{}, repo.ErrNotFound)
	products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{ID: 2, Name: "Ban cu", Price: 1000, IsActive: false}, nil)

	for _, pid := range []int64{404, 2} {
		_, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
			Lines:         []usecase.CheckoutLine{{ProductID: pid, Quantity: 1}},
			Address:       validAddress(),
			PaymentMethod: string(model.PaymentMethodCOD),
		})
		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok)
		assert.Equal(t, 400, he.Status)
		assert.Equal(t, "invalid line item", he.Message)
	}
}

func TestPlaceOrder_InvalidPaymentMethod(t *testing.T) {
	uc, _, _, _, _, _, _ := newCheckoutFixture(20000, 0)

	_, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		Lines:         []usecase.CheckoutLine{{ProductID: 1, Quantity: 1}},
		Address:       validAddress(),
		PaymentMethod: "CREDIT_CHIP",
	})
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

// orderIdのunique衝突は上書きせず、新しいIDで引き直す
func TestPlaceOrder_OrderIDCollision_RetriesWithFreshID(t *testing.T) {
	orders := new(CheckoutOrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	tx := &TxManagerMock{Repos: &TxReposMock{orders: orders, orderItems: orderItems, products: products}}
	tx.On("WithinTx", mock.Anything).Return(nil)

	idGen := &idGenStub{ids: []string{"dup-id", "fresh-id"}}

	uc := usecase.NewCheckoutUsecase(
		tx,
		validator.NewCheckoutValidator(),
		&urlBuilderStub{},
		idGen,
		&fixedClock{now: testNow},
		20000,
		0,
	)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Ao thun", Price: 250000, IsActive: true}, nil)

	//1回目は衝突、2回目は成功
	orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool { return o.OrderID == "dup-id" })).
		Return(int64(0), gorm.ErrDuplicatedKey).Once()
	orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool { return o.OrderID == "fresh-id" })).
		Return(int64(9), nil).Once()
	orderItems.On("CreateBulk", mock.Anything, int64(9), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		Lines:         []usecase.CheckoutLine{{ProductID: 1, Quantity: 2}},
		Address:       validAddress(),
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	assert.NoError(t, err)
	assert.Equal(t, "fresh-id", out.Order.OrderID)
	orders.AssertExpectations(t)
}
