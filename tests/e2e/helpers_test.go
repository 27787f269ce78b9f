package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// E2E=1のときだけ動かす。起動済みサーバとDBが前提。
func requireE2E(t *testing.T) {
	t.Helper()
	if os.Getenv("E2E") != "1" {
		t.Skip("set E2E=1 (and BASE_URL) to run e2e tests against a running server")
	}
}

type TestClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewTestClient(t *testing.T) *TestClient {
	t.Helper()

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &TestClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type OrderItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderDTO struct {
	OrderID           string         `json:"order_id"`
	PaymentMethod     string         `json:"payment_method"`
	ItemsPrice        int64          `json:"items_price"`
	ShippingPrice     int64          `json:"shipping_price"`
	TaxPrice          int64          `json:"tax_price"`
	TotalPrice        int64          `json:"total_price"`
	IsPaid            bool           `json:"is_paid"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	Items             []OrderItemDTO `json:"items"`
}

type PlaceOrderResponse struct {
	Order      OrderDTO `json:"order"`
	PaymentURL string   `json:"payment_url"`
}

type OrderStatusDTO struct {
	OrderID           string `json:"order_id"`
	IsPaid            bool   `json:"is_paid"`
	PaymentStatus     string `json:"payment_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
}

type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type ReturnViewDTO struct {
	Verdict  string `json:"verdict"`
	OrderRef string `json:"order_ref"`
	Message  string `json:"message"`
}

func (c *TestClient) doJSON(
	ctx context.Context,
	t *testing.T,
	method string,
	path string,
	bearer string,
	bodyBytes []byte,
) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("http.NewRequest failed: %v", err)
	}

	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		t.Fatalf("HTTP.Do failed: %v", err)
	}

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	return resp, data
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json.Unmarshal failed: %v body=%s", err, string(body))
	}
	return v
}

func adminLogin(t *testing.T, c *TestClient, ctx context.Context) string {
	t.Helper()

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("ADMIN_EMAIL / ADMIN_PASSWORD are required for admin e2e tests")
	}

	b, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("json.Marshal(LoginRequest) failed: %v", err)
	}

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/auth/login", "", b)
	requireStatus(t, resp, http.StatusOK, body)

	login := mustDecode[LoginResponse](t, body)
	if strings.TrimSpace(login.AccessToken) == "" {
		t.Fatalf("access token is empty: body=%s", string(body))
	}
	return login.AccessToken
}

// 注文を1件作る。明細はシードデータの商品ID（PRODUCT_ID env、デフォルト1）。
func placeOrder(t *testing.T, c *TestClient, ctx context.Context, paymentMethod string) PlaceOrderResponse {
	t.Helper()

	productID := int64(1)
	if v := os.Getenv("PRODUCT_ID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err == nil && parsed > 0 {
			productID = parsed
		}
	}

	reqBody := map[string]interface{}{
		"lines": []map[string]int64{{"product_id": productID, "quantity": 2}},
		"address": map[string]string{
			"recipient_name": "Nguyen Van A",
			"phone":          "0900000000",
			"address_line":   "1 Le Loi",
			"city":           "Ha Noi",
			"country":        "VN",
		},
		"payment_method": paymentMethod,
		"locale":         "vn",
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("json.Marshal(place order) failed: %v", err)
	}

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/checkout/orders", "", b)
	requireStatus(t, resp, http.StatusCreated, body)

	out := mustDecode[PlaceOrderResponse](t, body)
	if out.Order.OrderID == "" {
		t.Fatalf("order_id is empty: body=%s", string(body))
	}
	return out
}

func getOrderStatus(t *testing.T, c *TestClient, ctx context.Context, orderID string) OrderStatusDTO {
	t.Helper()

	resp, body := c.doJSON(ctx, t, http.MethodGet, "/orders/"+orderID+"/status", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	return mustDecode[OrderStatusDTO](t, body)
}
