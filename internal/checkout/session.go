package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"app/internal/domain/model"
	"app/internal/usecase"
)

// チェックアウトの画面ステップ。
type Step string

const (
	StepCart         Step = "CART"
	StepCustomerInfo Step = "CUSTOMER_INFO"
	StepPayment      Step = "PAYMENT"
	StepFulfillment  Step = "FULFILLMENT"
	StepComplete     Step = "COMPLETE"
)

var (
	ErrInvalidStep         = errors.New("invalid step transition")
	ErrOrderAlreadyExists  = errors.New("order already created for this session")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
)

// 注文作成前だけ存在する下書き。注文ができたら破棄する。
type CustomerInfoDraft struct {
	Address       usecase.ShippingAddressInput `json:"address"`
	PaymentMethod model.PaymentMethod          `json:"payment_method"`
}

// 注文作成の約束（CheckoutUsecaseが実装する形）
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in usecase.PlaceOrderInput) (usecase.PlaceOrderOutput, error)
}

// 1チェックアウトセッション分の明示的なFSM。
// グローバルな「現在ステップ」は持たず、この値だけが状態を持つ。
type Session struct {
	step       Step
	draft      *CustomerInfoDraft
	orderID    string
	paymentURL string
}

func NewSession() *Session {
	return &Session{step: StepCart}
}

func (s *Session) Step() Step          { return s.step }
func (s *Session) OrderID() string     { return s.orderID }
func (s *Session) PaymentURL() string  { return s.paymentURL }
func (s *Session) Draft() *CustomerInfoDraft { return s.draft }

// カート確定→顧客情報入力へ。
func (s *Session) BeginCustomerInfo(draft CustomerInfoDraft) error {
	if s.step != StepCart && s.step != StepCustomerInfo {
		return ErrInvalidStep
	}
	s.draft = &draft
	s.step = StepCustomerInfo
	return nil
}

// 顧客情報確定。ここで注文を作る。
// 代引きはPaymentを飛ばしてFULFILLMENTへ（ただし未払いのまま。
// 「支払い済み」と「代金引換待ち」は別の状態で、混同しない）。
// ゲートウェイ払いはPAYMENTに留まり、リダイレクトURLを保持する。
func (s *Session) SubmitCustomerInfo(ctx context.Context, lines []usecase.CheckoutLine, clientIP string, locale string, placer OrderPlacer) error {
	if s.step != StepCustomerInfo {
		return ErrInvalidStep
	}
	if s.orderID != "" {
		return ErrOrderAlreadyExists
	}
	if s.draft == nil {
		return ErrInvalidStep
	}

	out, err := placer.PlaceOrder(ctx, usecase.PlaceOrderInput{
		Lines:         lines,
		Address:       s.draft.Address,
		PaymentMethod: string(s.draft.PaymentMethod),
		ClientIP:      clientIP,
		Locale:        locale,
	})
	if err != nil {
		return err
	}

	method := s.draft.PaymentMethod

	//注文ができたので下書きは破棄
	s.orderID = out.Order.OrderID
	s.draft = nil

	if method == model.PaymentMethodCOD {
		s.step = StepFulfillment
		return nil
	}

	s.paymentURL = out.PaymentURL
	s.step = StepPayment
	return nil
}

// ポーリング結果を受けてPAYMENT→FULFILLMENTへ進む。
// 確定していない結果では進まない。
func (s *Session) ConfirmPayment(res PollResult) error {
	if s.step != StepPayment {
		return ErrInvalidStep
	}
	if res != PollConfirmed {
		return ErrPaymentNotConfirmed
	}
	s.step = StepFulfillment
	return nil
}

// 配送完了を観測したらCOMPLETEへ。
func (s *Session) ObserveFulfillment(status model.FulfillmentStatus) error {
	if s.step != StepFulfillment {
		return ErrInvalidStep
	}
	if status == model.FulfillmentDelivered {
		s.step = StepComplete
	}
	return nil
}

// 前のステップへ戻る。注文作成後は一切戻れない（注文は不変。
// やり直しは新しい注文＝新しいセッションで行う）。
func (s *Session) Back(target Step) error {
	if s.orderID != "" {
		return ErrInvalidStep
	}
	if target != StepCart && target != StepCustomerInfo {
		return ErrInvalidStep
	}
	if target == StepCustomerInfo && s.step != StepCustomerInfo {
		return ErrInvalidStep
	}
	if target == StepCart {
		s.draft = nil
	}
	s.step = target
	return nil
}

// セッションの明示的なリセット。下書きも捨てる。
func (s *Session) Reset() {
	s.step = StepCart
	s.draft = nil
	s.orderID = ""
	s.paymentURL = ""
}

// 永続化は暗黙に生き残らせず、明示的にシリアライズ／復元する。
type sessionState struct {
	Step       Step               `json:"step"`
	Draft      *CustomerInfoDraft `json:"draft,omitempty"`
	OrderID    string             `json:"order_id,omitempty"`
	PaymentURL string             `json:"payment_url,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionState{
		Step:       s.step,
		Draft:      s.draft,
		OrderID:    s.orderID,
		PaymentURL: s.paymentURL,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if st.Step == "" {
		st.Step = StepCart
	}
	s.step = st.Step
	s.draft = st.Draft
	s.orderID = st.OrderID
	s.paymentURL = st.PaymentURL
	return nil
}
