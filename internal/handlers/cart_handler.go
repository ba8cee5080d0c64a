package handlers

import (
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts service.CartService
	log   *zap.Logger
}

func NewCartHandler(carts service.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

func (h *CartHandler) respond(c *gin.Context, view *service.CartView, err error) {
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCartResponse(view))
}

// GetCart godoc
// @Summary Корзина текущего пользователя
// @Description Возвращает позиции, способ получения и итоги; создаёт пустую корзину при первом обращении
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CartResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	view, err := h.carts.GetCart(c.Request.Context())
	h.respond(c, view, err)
}

// AddItem godoc
// @Summary Добавить товар в корзину
// @Description Резервирует количество на складе; одинаковые товар/размер/цвет объединяются
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body dto.AddCartItemRequest true "Позиция"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Failure 422 {object} dto.UnprocessableErrorResponse "Товар недоступен"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	view, err := h.carts.AddItem(c.Request.Context(), service.AddItemInput{
		ProductID: uuid.MustParse(req.ProductID),
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	h.respond(c, view, err)
}

// UpdateItem godoc
// @Summary Изменить количество позиции
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID позиции корзины"
// @Param item body dto.UpdateCartItemRequest true "Новое количество"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart/items/{id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	view, err := h.carts.UpdateItemQuantity(c.Request.Context(), id, req.Quantity)
	h.respond(c, view, err)
}

// RemoveItem godoc
// @Summary Удалить позицию из корзины
// @Description Возвращает зарезервированное количество на склад
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID позиции корзины"
// @Success 200 {object} dto.CartResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	view, err := h.carts.RemoveItem(c.Request.Context(), id)
	h.respond(c, view, err)
}

// ClearCart godoc
// @Summary Очистить корзину
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CartResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	view, err := h.carts.ClearCart(c.Request.Context())
	h.respond(c, view, err)
}

// SetDelivery godoc
// @Summary Способ получения заказа
// @Description pickup или delivery; для delivery обязательна активная зона
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param delivery body dto.SetDeliveryRequest true "Способ получения"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 422 {object} dto.UnprocessableErrorResponse "Зона не задана или неактивна"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart/delivery [put]
func (h *CartHandler) SetDelivery(c *gin.Context) {
	var req dto.SetDeliveryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	view, err := h.carts.SetDelivery(c.Request.Context(), service.SetDeliveryInput{
		Method: models.DeliveryMethod(req.DeliveryMethod),
		ZoneID: optionalUUID(req.DeliveryZoneID),
	})
	h.respond(c, view, err)
}
