package handler

import (
	"net/http"

	"app/internal/metrics"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	raw := c.Get(middleware.CtxUserIDKey)
	id, ok := raw.(int64)
	return id, ok
}

// /checkout と /orders の公開API
type OrderHandler struct {
	checkoutUC *usecase.CheckoutUsecase
	orderUC    *usecase.OrderUsecase
}

func NewOrderHandler(checkoutUC *usecase.CheckoutUsecase, orderUC *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{checkoutUC: checkoutUC, orderUC: orderUC}
}

type PlaceOrderRequest struct {
	Lines         []usecase.CheckoutLine       `json:"lines"`
	Address       usecase.ShippingAddressInput `json:"address"`
	PaymentMethod string                       `json:"payment_method"`
	Locale        string                       `json:"locale"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout/orders", h.create)
	e.GET("/orders/:orderID", h.detail)
	e.GET("/orders/:orderID/status", h.status)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkoutUC.PlaceOrder(c.Request().Context(), usecase.PlaceOrderInput{
		Lines:         req.Lines,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.RealIP(),
		Locale:        req.Locale,
	})
	if err != nil {
		return writeError(c, err)
	}

	metrics.OrdersCreatedTotal.WithLabelValues(out.Order.PaymentMethod).Inc()
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.orderUC.GetDetail(c.Request().Context(), c.Param("orderID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ポーリング用の軽い読み取り
func (h *OrderHandler) status(c echo.Context) error {
	out, err := h.orderUC.GetStatus(c.Request().Context(), c.Param("orderID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
