package e2e

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"testing"

	"app/internal/gateway"
)

// GATEWAY_SECRETがないとIPNを署名できないのでスキップ。
func gatewaySecret(t *testing.T) string {
	t.Helper()
	secret := os.Getenv("GATEWAY_SECRET")
	if secret == "" {
		t.Skip("GATEWAY_SECRET is required to sign IPN callbacks")
	}
	return secret
}

// ゲートウェイの代わりに署名付きIPNを組み立てる
func signedIPNQuery(secret string, orderRef string, totalPrice int64, responseCode string) string {
	params := url.Values{}
	params.Set(gateway.ParamTxnRef, orderRef)
	params.Set(gateway.ParamAmount, strconv.FormatInt(totalPrice*100, 10))
	params.Set(gateway.ParamResponseCode, responseCode)
	params.Set(gateway.ParamTransactionNo, "14421081")
	params.Set(gateway.ParamBankCode, "NCB")

	canonical := gateway.CanonicalQuery(params)
	params.Set(gateway.ParamSecureHash, gateway.Sign(canonical, secret))
	return params.Encode()
}

func callIPN(t *testing.T, c *TestClient, ctx context.Context, query string) IPNResponse {
	t.Helper()
	resp, body := c.doJSON(ctx, t, http.MethodGet, "/payment/ipn?"+query, "", nil)
	//IPNはHTTPとしては常に200
	requireStatus(t, resp, http.StatusOK, body)
	return mustDecode[IPNResponse](t, body)
}

func Test_IPN_ConfirmsPayment_And_IsIdempotent(t *testing.T) {
	requireE2E(t)
	secret := gatewaySecret(t)
	c := NewTestClient(t)
	ctx := context.Background()

	out := placeOrder(t, c, ctx, "GATEWAY")
	orderID := out.Order.OrderID

	// 1回目：確定
	res := callIPN(t, c, ctx, signedIPNQuery(secret, orderID, out.Order.TotalPrice, "00"))
	if res.RspCode != "00" {
		t.Fatalf("RspCode=%s want=00 (%s)", res.RspCode, res.Message)
	}

	st := getOrderStatus(t, c, ctx, orderID)
	if !st.IsPaid {
		t.Fatalf("order should be paid after IPN: %+v", st)
	}

	// 2回目：同じIPNの再送は冪等（02）で、状態は変わらない
	res = callIPN(t, c, ctx, signedIPNQuery(secret, orderID, out.Order.TotalPrice, "00"))
	if res.RspCode != "02" {
		t.Fatalf("replayed IPN RspCode=%s want=02", res.RspCode)
	}
}

func Test_IPN_RejectsWithoutMutation(t *testing.T) {
	requireE2E(t)
	secret := gatewaySecret(t)
	c := NewTestClient(t)
	ctx := context.Background()

	out := placeOrder(t, c, ctx, "GATEWAY")
	orderID := out.Order.OrderID

	cases := []struct {
		name     string
		query    string
		wantCode string
	}{
		{
			name:     "invalid checksum",
			query:    signedIPNQuery("wrong-secret", orderID, out.Order.TotalPrice, "00"),
			wantCode: "97",
		},
		{
			name:     "gateway reported failure",
			query:    signedIPNQuery(secret, orderID, out.Order.TotalPrice, "24"),
			wantCode: "10",
		},
		{
			name:     "unknown order",
			query:    signedIPNQuery(secret, "no-such-order", out.Order.TotalPrice, "00"),
			wantCode: "01",
		},
		{
			name:     "amount mismatch",
			query:    signedIPNQuery(secret, orderID, out.Order.TotalPrice+1, "00"),
			wantCode: "04",
		},
	}

	for _, tc := range cases {
		res := callIPN(t, c, ctx, tc.query)
		if res.RspCode != tc.wantCode {
			t.Fatalf("%s: RspCode=%s want=%s (%s)", tc.name, res.RspCode, tc.wantCode, res.Message)
		}
	}

	// どの拒否パスでも注文は未払いのまま
	st := getOrderStatus(t, c, ctx, orderID)
	if st.IsPaid {
		t.Fatalf("rejected IPNs must not mutate the order: %+v", st)
	}
}

// Return-URLは表示専用：成功に見えても支払いは確定しない。
func Test_ReturnURL_NeverConfirms(t *testing.T) {
	requireE2E(t)
	secret := gatewaySecret(t)
	c := NewTestClient(t)
	ctx := context.Background()

	out := placeOrder(t, c, ctx, "GATEWAY")
	orderID := out.Order.OrderID

	query := signedIPNQuery(secret, orderID, out.Order.TotalPrice, "00")
	resp, body := c.doJSON(ctx, t, http.MethodGet, "/payment/return?"+query, "", nil)
	requireStatus(t, resp, http.StatusOK, body)

	view := mustDecode[ReturnViewDTO](t, body)
	//IPNが来ていないのでPROCESSING表示
	if view.Verdict != "PROCESSING" {
		t.Fatalf("verdict=%s want=PROCESSING", view.Verdict)
	}

	st := getOrderStatus(t, c, ctx, orderID)
	if st.IsPaid {
		t.Fatalf("return URL must never mark an order paid: %+v", st)
	}

	// IPN処理後はPAYMENT_RECORDED表示に変わる
	_ = callIPN(t, c, ctx, query)

	resp, body = c.doJSON(ctx, t, http.MethodGet, "/payment/return?"+query, "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	view = mustDecode[ReturnViewDTO](t, body)
	if view.Verdict != "PAYMENT_RECORDED" {
		t.Fatalf("verdict=%s want=PAYMENT_RECORDED", view.Verdict)
	}
}
