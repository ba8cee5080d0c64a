package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-service/internal/dto"
	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

func runWriteError(err error) (int, dto.BaseError) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(c, zap.NewNop(), err)

	var body dto.BaseError
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestWriteError_Mapping(t *testing.T) {
	pid := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"bad quantity", service.ErrQuantityInvalid, http.StatusBadRequest, "validation_error"},
		{"not found wrapped", fmt.Errorf("lock: %w", service.ErrProductNotFound), http.StatusNotFound, "product_not_found"},
		{"stock", &service.InsufficientStockError{ProductID: pid, Requested: 4, Available: 1}, http.StatusConflict, "insufficient_stock"},
		{"empty cart", service.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
		{"incompatible", &service.DeliveryMethodIncompatibleError{Method: models.DeliveryMethodPickup}, http.StatusUnprocessableEntity, "delivery_method_incompatible"},
		{"deadlock", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), http.StatusConflict, "concurrent_modification"},
		{"unknown", fmt.Errorf("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := runWriteError(tt.err)
			if status != tt.status || body.Code != tt.code {
				t.Fatalf("got %d/%s, want %d/%s", status, body.Code, tt.status, tt.code)
			}
		})
	}
}

func TestWriteError_StockConflictDetails(t *testing.T) {
	pid := uuid.New()
	_, body := runWriteError(&service.InsufficientStockError{ProductID: pid, Requested: 4, Available: 1})
	if len(body.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v", body.Conflicts)
	}
	c := body.Conflicts[0]
	if c.ProductID != pid.String() || c.Requested != 4 || c.Available != 1 {
		t.Fatalf("conflict = %+v", c)
	}
}

func TestWriteError_InternalHidesDetails(t *testing.T) {
	_, body := runWriteError(fmt.Errorf("pq: password authentication failed"))
	if body.Details != "" || body.Message != "internal server error" {
		t.Fatalf("internal error leaked: %+v", body)
	}
}
