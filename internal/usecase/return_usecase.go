package usecase

import (
	"context"
	"net/url"

	"app/internal/gateway"
	repo "app/internal/repository"
)

// ブラウザ戻り（Return-URL）の表示用判定。IPNResultとは別の型にして、
// この経路の値がうっかり支払い確定に使われないようにする。
type AdvisoryVerdict string

const (
	AdvisoryChecksumInvalid AdvisoryVerdict = "CHECKSUM_INVALID"
	AdvisoryOrderUnknown    AdvisoryVerdict = "ORDER_UNKNOWN"
	AdvisoryGatewayFailed   AdvisoryVerdict = "GATEWAY_FAILED"
	AdvisoryPaymentRecorded AdvisoryVerdict = "PAYMENT_RECORDED"
	AdvisoryProcessing      AdvisoryVerdict = "PROCESSING"
)

type ReturnView struct {
	Verdict  AdvisoryVerdict `json:"verdict"`
	OrderRef string          `json:"order_ref,omitempty"`
	Message  string          `json:"message"`
}

// Return-URLの検証。注文の読み取りしか持たず、書き込み経路は存在しない。
type ReturnUsecase struct {
	verifier SignatureVerifier
	orders   repo.OrderReader
}

func NewReturnUsecase(verifier SignatureVerifier, orders repo.OrderReader) *ReturnUsecase {
	return &ReturnUsecase{verifier: verifier, orders: orders}
}

// Handle は表示内容を決めるだけ。ここで「成功」が見えても、
// IPNが届くまで支払いは確定ではない（PROCESSINGのままポーリングさせる）。
func (u *ReturnUsecase) Handle(ctx context.Context, params url.Values) ReturnView {
	if !u.verifier.Verify(params) {
		return ReturnView{
			Verdict: AdvisoryChecksumInvalid,
			Message: "Could not verify the payment result. Please contact support.",
		}
	}

	cb, err := gateway.ParseCallback(params)
	if err != nil {
		return ReturnView{
			Verdict: AdvisoryChecksumInvalid,
			Message: "Could not verify the payment result. Please contact support.",
		}
	}

	order, err := u.orders.FindByOrderID(ctx, cb.OrderRef)
	if err != nil {
		return ReturnView{
			Verdict:  AdvisoryOrderUnknown,
			OrderRef: cb.OrderRef,
			Message:  "Order not found.",
		}
	}

	if !cb.GatewaySuccess() {
		return ReturnView{
			Verdict:  AdvisoryGatewayFailed,
			OrderRef: order.OrderID,
			Message:  "Payment was not completed.",
		}
	}

	//IPNが先に処理済みなら確定表示、まだなら処理中表示
	if order.IsPaid {
		return ReturnView{
			Verdict:  AdvisoryPaymentRecorded,
			OrderRef: order.OrderID,
			Message:  "Payment received. Thank you.",
		}
	}

	return ReturnView{
		Verdict:  AdvisoryProcessing,
		OrderRef: order.OrderID,
		Message:  "Payment is being confirmed. This page will update shortly.",
	}
}
