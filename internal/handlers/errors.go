package handlers

import (
	"errors"
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},

	{service.ErrQuantityInvalid, http.StatusBadRequest, "validation_error"},
	{service.ErrInvalidDeliveryMethod, http.StatusBadRequest, "validation_error"},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, "validation_error"},
	{service.ErrPaymentMethodMismatch, http.StatusBadRequest, "validation_error"},
	{service.ErrAddressRequired, http.StatusBadRequest, "validation_error"},
	{service.ErrPickupLocationRequired, http.StatusBadRequest, "validation_error"},
	{service.ErrInvalidSettings, http.StatusBadRequest, "validation_error"},

	{service.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{service.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{service.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{service.ErrCheckoutNotFound, http.StatusNotFound, "checkout_not_found"},

	{service.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{service.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{service.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},

	{service.ErrProductUnavailable, http.StatusUnprocessableEntity, "product_unavailable"},
	{service.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	{service.ErrZoneRequired, http.StatusUnprocessableEntity, "zone_required"},
	{service.ErrInvalidZone, http.StatusUnprocessableEntity, "invalid_zone"},
	{service.ErrInvalidAddress, http.StatusUnprocessableEntity, "invalid_address"},
	{service.ErrInvalidPickupLocation, http.StatusUnprocessableEntity, "invalid_pickup_location"},
	{service.ErrDeliveryMethodIncompatible, http.StatusUnprocessableEntity, "delivery_method_incompatible"},
}

// writeError переводит ошибку сервиса в HTTP-ответ. Неизвестные ошибки — 500 с логом.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		body := dto.BaseError{Code: m.code, Message: err.Error(), Conflicts: conflicts(err)}
		if m.status == http.StatusBadRequest {
			body.Message = m.err.Error()
		}
		log.Warn("request rejected",
			zap.String("route", c.FullPath()),
			zap.Int("status", m.status),
			zap.String("code", m.code),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(m.status, body)
		return
	}

	if repository.IsTransientConflict(err) {
		log.Warn("transaction lost lock race", zap.String("route", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewConflictError("concurrent_modification", "concurrent update, retry the request", nil))
		return
	}

	log.Error("internal error", zap.String("route", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewInternalError(""))
}

func conflicts(err error) []dto.ItemConflict {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return []dto.ItemConflict{{
			ProductID: stockErr.ProductID.String(),
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		}}
	}
	var incompatible *service.DeliveryMethodIncompatibleError
	if errors.As(err, &incompatible) {
		out := make([]dto.ItemConflict, 0, len(incompatible.Items))
		for _, it := range incompatible.Items {
			out = append(out, dto.ItemConflict{
				CartItemID:  it.CartItemID.String(),
				ProductID:   it.ProductID.String(),
				ProductName: it.ProductName,
			})
		}
		return out
	}
	return nil
}

// bindJSON читает тело и прогоняет валидатор; при ошибке ответ уже записан.
func bindJSON(c *gin.Context, log *zap.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Warn("invalid request body", zap.String("route", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return false
	}
	return validate(c, req)
}

func validate(c *gin.Context, req any) bool {
	if verr := validation.ValidateStruct(req); verr != nil {
		fields := make([]dto.FieldError, 0, len(verr.Issues()))
		for _, i := range verr.Issues() {
			fields = append(fields, dto.FieldError{Field: i.Field, Message: i.Message, Tag: i.Tag})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{
			{Field: name, Message: "must be a valid UUID", Tag: "uuid"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	// формат уже проверен валидатором
	id := uuid.MustParse(*s)
	return &id
}
