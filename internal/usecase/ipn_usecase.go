package usecase

import (
	"context"
	"log"
	"net/url"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
)

// 署名検証の約束。gateway.Adapterが実装する。
type SignatureVerifier interface {
	Verify(params url.Values) bool
}

// IPN処理の結果。閉じた列挙にして、
// ゲートウェイへの応答コードはここから引く。
type IPNResult int

const (
	IPNSuccess IPNResult = iota
	IPNChecksumInvalid
	IPNGatewayFailed
	IPNOrderNotFound
	IPNOrderMismatch
	IPNAmountMismatch
	IPNAlreadyConfirmed
	IPNUnknownError
)

func (r IPNResult) String() string {
	switch r {
	case IPNSuccess:
		return "success"
	case IPNChecksumInvalid:
		return "checksum_invalid"
	case IPNGatewayFailed:
		return "gateway_failed"
	case IPNOrderNotFound:
		return "order_not_found"
	case IPNOrderMismatch:
		return "order_mismatch"
	case IPNAmountMismatch:
		return "amount_mismatch"
	case IPNAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "unknown_error"
	}
}

// ゲートウェイが期待する応答形。リトライ挙動がこれに依存するので形を崩さない。
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// 応答コード表。AlreadyConfirmedも「成功扱い」でリトライを止めさせる。
func (r IPNResult) Response() IPNResponse {
	switch r {
	case IPNSuccess:
		return IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case IPNAlreadyConfirmed:
		return IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	case IPNOrderNotFound, IPNOrderMismatch:
		return IPNResponse{RspCode: "01", Message: "Order not found"}
	case IPNAmountMismatch:
		return IPNResponse{RspCode: "04", Message: "Invalid amount"}
	case IPNGatewayFailed:
		return IPNResponse{RspCode: "10", Message: "Payment failed at gateway"}
	case IPNChecksumInvalid:
		return IPNResponse{RspCode: "97", Message: "Invalid checksum"}
	default:
		return IPNResponse{RspCode: "99", Message: "Unknown error"}
	}
}

// サーバ間コールバック（IPN）の検証と注文への反映。
// 注文を支払い済みにできるのはこのユースケースだけ。
type IPNUsecase struct {
	orders   repo.OrderRepository
	verifier SignatureVerifier
	clock    Clock
}

func NewIPNUsecase(orders repo.OrderRepository, verifier SignatureVerifier, clock Clock) *IPNUsecase {
	return &IPNUsecase{orders: orders, verifier: verifier, clock: clock}
}

// Handle は検証手順を順に回し、最初の失敗で打ち切る。
// 途中でどんな内部エラーが出ても「支払い済みにしない」側に倒す。
func (u *IPNUsecase) Handle(ctx context.Context, params url.Values) IPNResult {
	//1. 署名の再計算と定数時間比較
	if !u.verifier.Verify(params) {
		log.Printf("[ipn] checksum invalid: txnref=%q", params.Get(gateway.ParamTxnRef))
		return IPNChecksumInvalid
	}

	cb, err := gateway.ParseCallback(params)
	if err != nil {
		log.Printf("[ipn] bad callback: %v", err)
		return IPNUnknownError
	}

	//2. ゲートウェイ側の結果が成功でなければ状態は変えない
	if !cb.GatewaySuccess() {
		log.Printf("[ipn] gateway reported failure: order=%s code=%s", cb.OrderRef, cb.ResponseCode)
		return IPNGatewayFailed
	}

	//3. 注文参照で引く
	order, err := u.orders.FindByOrderID(ctx, cb.OrderRef)
	if err == repo.ErrNotFound {
		log.Printf("[ipn] order not found: %s", cb.OrderRef)
		return IPNOrderNotFound
	}
	if err != nil {
		log.Printf("[ipn] lookup failed: order=%s err=%v", cb.OrderRef, err)
		return IPNUnknownError
	}

	//4. 参照の厳密一致（取り違え防御）
	if order.OrderID != cb.OrderRef {
		log.Printf("[ipn] order mismatch: got=%s stored=%s", cb.OrderRef, order.OrderID)
		return IPNOrderMismatch
	}

	//5. 金額の厳密一致
	if !cb.AmountMatches(order.TotalPrice) {
		log.Printf("[ipn] amount mismatch: order=%s got=%d want=%d", cb.OrderRef, cb.Amount, order.TotalPrice)
		return IPNAmountMismatch
	}

	//6. 既に支払い済みなら冪等no-op
	if order.IsPaid {
		return IPNAlreadyConfirmed
	}

	//7. 「未払いの場合だけ」を1回の条件付きUPDATEで。
	//   並行配送に負けた側はここで false を見て冪等パスに落ちる。
	updated, err := u.orders.MarkPaidIfUnpaid(ctx, order.OrderID, model.PaymentResult{
		GatewayTxnID: cb.TxnNo,
		Status:       cb.ResponseCode,
		BankCode:     cb.BankCode,
	}, u.clock.Now())
	if err != nil {
		log.Printf("[ipn] mark paid failed: order=%s err=%v", cb.OrderRef, err)
		return IPNUnknownError
	}
	if !updated {
		return IPNAlreadyConfirmed
	}

	log.Printf("[ipn] order paid: order=%s txn=%s", cb.OrderRef, cb.TxnNo)
	return IPNSuccess
}
