package handlers

import (
	"net/http"
	"strconv"

	"storefront-service/internal/dto"
	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminHandler struct {
	settings service.SettingsProvider
	orders   service.OrderService
	stock    service.InventoryService
	log      *zap.Logger
}

func NewAdminHandler(settings service.SettingsProvider, orders service.OrderService, stock service.InventoryService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{settings: settings, orders: orders, stock: stock, log: log}
}

// GetSettings godoc
// @Summary Настройки магазина
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SettingsResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	st, err := h.settings.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettingsResponse(st))
}

// UpdateSettings godoc
// @Summary Изменить настройки магазина
// @Description Меняются только переданные поля
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body dto.UpdateSettingsRequest true "Изменения"
// @Success 200 {object} dto.SettingsResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	st, err := h.settings.UpdateSettings(c.Request.Context(), service.SettingsPatch{
		TaxRate:                     optionalDecimal(req.TaxRate),
		FreeShippingThreshold:       optionalDecimal(req.FreeShippingThreshold),
		LargeOrderQuantityThreshold: req.LargeOrderQuantityThreshold,
		LargeOrderDeliveryFee:       optionalDecimal(req.LargeOrderDeliveryFee),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettingsResponse(st))
}

// UpdateOrderStatus godoc
// @Summary Сменить статус заказа
// @Description pending→confirmed→shipped→delivered; cancelled возвращает товары на склад
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param status body dto.UpdateOrderStatusRequest true "Новый статус"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Недопустимый переход"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/admin/orders/{id}/status [put]
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// AdjustStock godoc
// @Summary Корректировка остатка
// @Description delta > 0 — приход, delta < 0 — списание; остаток не может уйти в минус
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID товара"
// @Param adjust body dto.AdjustStockRequest true "Изменение"
// @Success 200 {object} dto.StockLevelResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/admin/products/{id}/stock [post]
func (h *AdminHandler) AdjustStock(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	lvl, err := h.stock.AdjustStock(c.Request.Context(), service.StockAdjustInput{
		ProductID: id,
		Size:      req.Size,
		Color:     req.Color,
		Delta:     req.Delta,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockLevelResponse(lvl))
}

// ListMovements godoc
// @Summary Журнал движений остатка
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID товара"
// @Param limit query int false "Количество записей"
// @Success 200 {array} dto.StockMovementResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/admin/products/{id}/movements [get]
func (h *AdminHandler) ListMovements(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.stock.ListMovements(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockMovementsResponse(list))
}

func optionalDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	// формат уже проверен валидатором (money)
	d := decimal.RequireFromString(*s)
	return &d
}
