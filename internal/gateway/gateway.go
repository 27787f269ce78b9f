package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ゲートウェイの固定パラメータ名。
// キー名・正規化順序はベンダー仕様。1文字でもずれると相手側で検証が落ちる。
const (
	ParamVersion      = "vnp_Version"
	ParamCommand      = "vnp_Command"
	ParamTmnCode      = "vnp_TmnCode"
	ParamAmount       = "vnp_Amount"
	ParamCreateDate   = "vnp_CreateDate"
	ParamCurrCode     = "vnp_CurrCode"
	ParamIPAddr       = "vnp_IpAddr"
	ParamLocale       = "vnp_Locale"
	ParamOrderInfo    = "vnp_OrderInfo"
	ParamOrderType    = "vnp_OrderType"
	ParamReturnURL    = "vnp_ReturnUrl"
	ParamTxnRef       = "vnp_TxnRef"
	ParamSecureHash   = "vnp_SecureHash"
	ParamSecureHashTp = "vnp_SecureHashType"

	ParamResponseCode  = "vnp_ResponseCode"
	ParamTransactionNo = "vnp_TransactionNo"
	ParamBankCode      = "vnp_BankCode"

	responseCodeSuccess = "00"

	version    = "2.1.0"
	commandPay = "pay"
	currCode   = "VND"
	orderType  = "other"

	// 金額は最小通貨単位の100倍で送る（ベンダー仕様）
	amountScale = 100

	createDateLayout = "20060102150405"
)

// 署名用の設定。プロセス起動時に1回作って使い回す。
type Config struct {
	PayURL    string // 決済ページURL
	TmnCode   string // マーチャントコード
	Secret    string // 共有シークレット
	ReturnURL string // ブラウザ戻り先
}

// リダイレクトURLの入力。Orderと設定の純関数で、I/Oはしない。
type PaymentRequest struct {
	OrderRef   string // 公開orderId
	Amount     int64  // 注文のtotalPrice（通貨単位）
	OrderInfo  string // 人間可読の注文説明
	ClientIP   string
	Locale     string // 空なら vn
	CreateTime time.Time
}

type Adapter struct {
	cfg Config
}

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// CanonicalQuery はキー昇順でURLエンコードした k=v&... を返す。
// 署名の対象文字列とリダイレクトURLのクエリは同じ正規形を共有する。
// url.Values.Encode がキーをソートするのでそれに乗る。
func CanonicalQuery(params url.Values) string {
	filtered := url.Values{}
	for k, vs := range params {
		if k == ParamSecureHash || k == ParamSecureHashTp {
			continue
		}
		for _, v := range vs {
			if v == "" {
				continue
			}
			filtered.Add(k, v)
		}
	}
	return filtered.Encode()
}

// Sign は正規化済みクエリにHMAC-SHA512署名を付ける。
func Sign(canonical string, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature は受信パラメータの署名を再計算して比較する。
// 比較は hmac.Equal（定数時間）。
func VerifySignature(params url.Values, secret string) bool {
	received := strings.ToLower(params.Get(ParamSecureHash))
	if received == "" {
		return false
	}
	expected := Sign(CanonicalQuery(params), secret)
	return hmac.Equal([]byte(expected), []byte(received))
}

// Verify は受信パラメータをこのアダプタのシークレットで検証する。
func (a *Adapter) Verify(params url.Values) bool {
	return VerifySignature(params, a.cfg.Secret)
}

// BuildPaymentURL は署名付きのリダイレクトURLを組み立てる。
// 注文状態には一切触らない。
func (a *Adapter) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.OrderRef == "" {
		return "", fmt.Errorf("gateway: empty order ref")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("gateway: invalid amount %d", req.Amount)
	}

	locale := req.Locale
	if locale == "" {
		locale = "vn"
	}

	params := url.Values{}
	params.Set(ParamVersion, version)
	params.Set(ParamCommand, commandPay)
	params.Set(ParamTmnCode, a.cfg.TmnCode)
	params.Set(ParamAmount, strconv.FormatInt(req.Amount*amountScale, 10))
	params.Set(ParamCreateDate, req.CreateTime.Format(createDateLayout))
	params.Set(ParamCurrCode, currCode)
	params.Set(ParamIPAddr, req.ClientIP)
	params.Set(ParamLocale, locale)
	params.Set(ParamOrderInfo, req.OrderInfo)
	params.Set(ParamOrderType, orderType)
	params.Set(ParamReturnURL, a.cfg.ReturnURL)
	params.Set(ParamTxnRef, req.OrderRef)

	canonical := CanonicalQuery(params)
	sig := Sign(canonical, a.cfg.Secret)

	return a.cfg.PayURL + "?" + canonical + "&" + ParamSecureHash + "=" + sig, nil
}

// コールバック（IPN / Return-URL）の受信メッセージ。
// 1リクエストの処理中だけ生きる値で、永続化しない。
type Callback struct {
	OrderRef     string
	Amount       int64 // 100倍スケールのまま保持する
	ResponseCode string
	TxnNo        string
	BankCode     string
	Raw          url.Values
}

func (c Callback) GatewaySuccess() bool {
	return c.ResponseCode == responseCodeSuccess
}

// AmountMatches は注文のtotalPrice（通貨単位）との厳密一致を見る。
// 許容誤差・丸めは一切なし。
func (c Callback) AmountMatches(totalPrice int64) bool {
	return c.Amount == totalPrice*amountScale
}

// ParseCallback は受信クエリをCallbackに詰め替える。署名検証はしない。
func ParseCallback(params url.Values) (Callback, error) {
	amountStr := params.Get(ParamAmount)
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("gateway: bad amount %q", amountStr)
	}

	return Callback{
		OrderRef:     params.Get(ParamTxnRef),
		Amount:       amount,
		ResponseCode: params.Get(ParamResponseCode),
		TxnNo:        params.Get(ParamTransactionNo),
		BankCode:     params.Get(ParamBankCode),
		Raw:          params,
	}, nil
}
