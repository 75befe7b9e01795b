package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pms-backend/internal/model"
	"pms-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPOService struct {
	lastActor service.Actor
	calls     []string
}

func (s *stubPOService) CreateForPR(_ context.Context, actor service.Actor, prID uint, _ service.CreatePurchaseOrdersRequest) ([]service.PurchaseOrderResponse, error) {
	s.lastActor = actor
	s.calls = append(s.calls, "create")
	return []service.PurchaseOrderResponse{{PRID: prID}}, nil
}

func (s *stubPOService) Update(_ context.Context, actor service.Actor, poID uint, _ service.UpdatePurchaseOrderRequest) (service.PurchaseOrderResponse, error) {
	s.lastActor = actor
	s.calls = append(s.calls, "update")
	return service.PurchaseOrderResponse{ID: poID}, nil
}

func (s *stubPOService) Delete(_ context.Context, actor service.Actor, _ uint) error {
	s.lastActor = actor
	s.calls = append(s.calls, "delete")
	return nil
}

func (s *stubPOService) ListByPRGrouped(_ context.Context, actor service.Actor, prID uint) (service.GroupedPurchaseOrdersResponse, error) {
	s.lastActor = actor
	s.calls = append(s.calls, "list")
	return service.GroupedPurchaseOrdersResponse{PRID: prID}, nil
}

func (s *stubPOService) ListPRsWithOrders(_ context.Context, actor service.Actor) ([]service.PurchaseRequestResponse, error) {
	s.lastActor = actor
	s.calls = append(s.calls, "list-prs")
	return nil, nil
}

func bearerToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test_secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

// Quotation routes accept every authenticated role; only the service's
// status and visibility checks stand between a requester and a quotation.
func TestPurchaseOrderRoutesOpenToRequesters(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret")
	gin.SetMode(gin.TestMode)

	stub := &stubPOService{}
	router := gin.New()
	NewPurchaseOrderHandler(stub).RegisterRoutes(router.Group(""))

	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCall   string
	}{
		{
			name:       "create quotations",
			method:     http.MethodPost,
			path:       "/purchase-requests/5/purchase-orders",
			body:       `{"selections":[{"line_item_id":3,"supplier_name":"Acme","quotation_price":4.5}]}`,
			wantStatus: http.StatusCreated,
			wantCall:   "create",
		},
		{
			name:       "update quotation",
			method:     http.MethodPut,
			path:       "/purchase-orders/9",
			body:       `{"quotation_price":4.0}`,
			wantStatus: http.StatusOK,
			wantCall:   "update",
		},
		{
			name:       "delete quotation",
			method:     http.MethodDelete,
			path:       "/purchase-orders/9",
			wantStatus: http.StatusOK,
			wantCall:   "delete",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub.calls = nil
			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearerToken(t, "7", model.RoleRequester))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			require.Equal(t, []string{tc.wantCall}, stub.calls)
			assert.Equal(t, uint(7), stub.lastActor.UserID)
			assert.Equal(t, model.RoleRequester, stub.lastActor.Role)
		})
	}
}

func TestPurchaseOrderRoutesRejectAnonymous(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret")
	gin.SetMode(gin.TestMode)

	stub := &stubPOService{}
	router := gin.New()
	NewPurchaseOrderHandler(stub).RegisterRoutes(router.Group(""))

	req := httptest.NewRequest(http.MethodPost, "/purchase-requests/5/purchase-orders",
		strings.NewReader(`{"selections":[{"line_item_id":3,"supplier_name":"Acme","quotation_price":4.5}]}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, stub.calls)
}
