package handlers

import (
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// CreateOrder godoc
// @Summary Оформить заказ из корзины
// @Description on_delivery/on_pickup создают заказ и удаляют корзину; online создаёт сессию оплаты без изменения склада и корзины
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body dto.CreateOrderRequest true "Параметры заказа"
// @Success 201 {object} dto.CreateOrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар из корзины удалён"
// @Failure 422 {object} dto.UnprocessableErrorResponse "Пустая корзина или несовместимый способ получения"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	res, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		PaymentMethod:     models.PaymentMethod(req.PaymentMethod),
		DeliveryMethod:    models.DeliveryMethod(req.DeliveryMethod),
		DeliveryAddressID: optionalUUID(req.DeliveryAddressID),
		PickupLocationID:  optionalUUID(req.PickupLocationID),
		Notes:             req.Notes,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCreateOrderResponse(res))
}

// ListOrders godoc
// @Summary Заказы
// @Description Покупатель видит свои заказы, администратор — все
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу"
// @Param limit query int false "Размер страницы (1..100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.OrderListResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("invalid query", []dto.FieldError{}))
		return
	}
	if !validate(c, &q) {
		return
	}
	f := service.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := models.OrderStatus(q.Status)
		f.Status = &st
	}
	list, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := dto.OrderListResponse{Orders: make([]dto.OrderResponse, 0, len(list)), Total: total}
	for i := range list {
		out.Orders = append(out.Orders, dto.NewOrderResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GetOrder godoc
// @Summary Заказ по ID
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// CancelOrder godoc
// @Summary Отменить заказ
// @Description Разрешено для pending/confirmed; товары возвращаются на склад
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param cancel body dto.CancelOrderRequest false "Причина"
// @Success 200 {object} dto.OrderResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Уже отменён или недопустимый переход"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	o, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// GetCheckoutSession godoc
// @Summary Сессия онлайн-оплаты
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Reference сессии"
// @Success 200 {object} dto.CheckoutSessionResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/checkout-sessions/{reference} [get]
func (h *OrderHandler) GetCheckoutSession(c *gin.Context) {
	s, err := h.orders.GetCheckoutSession(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCheckoutSessionResponse(s))
}
