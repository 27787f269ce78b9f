package handler

import (
	"net/http"

	"app/internal/metrics"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ゲートウェイからのコールバック2本（IPNとReturn-URL）。
type PaymentHandler struct {
	ipnUC    *usecase.IPNUsecase
	returnUC *usecase.ReturnUsecase
}

func NewPaymentHandler(ipnUC *usecase.IPNUsecase, returnUC *usecase.ReturnUsecase) *PaymentHandler {
	return &PaymentHandler{ipnUC: ipnUC, returnUC: returnUC}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	//サーバ間通知（権威チャネル）。GETで署名付きクエリが届く。
	e.GET("/payment/ipn", h.ipn)

	//ブラウザ戻り（表示専用チャネル）
	e.GET("/payment/return", h.returnURL)
}

// IPNはHTTPとしては常に200で、結果はRspCodeで返す。
// ここで4xx/5xxを返すとゲートウェイのリトライ判断が壊れる。
func (h *PaymentHandler) ipn(c echo.Context) error {
	result := h.ipnUC.Handle(c.Request().Context(), c.QueryParams())

	metrics.IPNCallbacksTotal.WithLabelValues(result.String()).Inc()

	return c.JSON(http.StatusOK, result.Response())
}

// Return-URLは表示内容を決めるだけ。注文には書かない。
func (h *PaymentHandler) returnURL(c echo.Context) error {
	view := h.returnUC.Handle(c.Request().Context(), c.QueryParams())

	metrics.ReturnCallbacksTotal.WithLabelValues(string(view.Verdict)).Inc()

	return c.JSON(http.StatusOK, view)
}
