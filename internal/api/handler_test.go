package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/menu"
	"nightbite-be/internal/metrics"
	"nightbite-be/internal/middleware"
	"nightbite-be/internal/notification"
	"nightbite-be/internal/order"
	"nightbite-be/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("api-test-secret")

// --- Mocks ---

type MockOrderService struct {
	mock.Mock
}

func orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Order, error) {
	return orderResult(m.Called(ctx, in))
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderNumber string, actor order.Actor) (*order.Order, error) {
	return orderResult(m.Called(ctx, orderNumber, actor))
}

func (m *MockOrderService) AdvanceStatus(ctx context.Context, orderNumber, requested string, actor order.Actor) (*order.Order, error) {
	return orderResult(m.Called(ctx, orderNumber, requested, actor))
}

func (m *MockOrderService) VerifyAndHandover(ctx context.Context, orderNumber, code string, actor order.Actor) (*order.Order, error) {
	return orderResult(m.Called(ctx, orderNumber, code, actor))
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderNumber string, actor order.Actor) (*order.Order, error) {
	return orderResult(m.Called(ctx, orderNumber, actor))
}

func (m *MockOrderService) AssignDeliveryPartner(ctx context.Context, orderNumber string, partnerID uint, actor order.Actor) (*order.Order, error) {
	return orderResult(m.Called(ctx, orderNumber, partnerID, actor))
}

func (m *MockOrderService) History(ctx context.Context, orderNumber string, actor order.Actor) ([]order.StatusChange, error) {
	args := m.Called(ctx, orderNumber, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.StatusChange), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in user.RegisterInput) (string, *user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*user.User), args.Error(2)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*user.User), args.Error(2)
}

func (m *MockUserService) GetByID(ctx context.Context, id uint) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Subscribe(ctx context.Context, s *notification.Subscription) (*notification.Subscription, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Subscription), args.Error(1)
}

func (m *MockNotificationService) Unsubscribe(ctx context.Context, userID uint, endpoint string) error {
	return m.Called(ctx, userID, endpoint).Error(0)
}

func (m *MockNotificationService) SendNow(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationService) Schedule(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationService) ProcessScheduled(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type stubMenus struct {
	items []menu.Item
	err   error
}

func (s stubMenus) ListByRestaurant(ctx context.Context, restaurantID uint) ([]menu.Item, error) {
	return s.items, s.err
}

// --- Harness ---

type harness struct {
	orders  *MockOrderService
	users   *MockUserService
	notify  *MockNotificationService
	metrics *metrics.Registry
	server  http.Handler
}

func newHarness(t *testing.T, menus MenuLister) *harness {
	t.Helper()
	h := &harness{
		orders:  new(MockOrderService),
		users:   new(MockUserService),
		notify:  new(MockNotificationService),
		metrics: metrics.NewRegistry(),
	}
	if menus == nil {
		menus = stubMenus{}
	}
	handler := &Handler{
		Orders:        h.orders,
		Menus:         menus,
		Users:         h.users,
		Notifications: h.notify,
		Metrics:       h.metrics,
	}
	mux := http.NewServeMux()
	handler.Register(mux)
	h.server = middleware.Auth(testSecret)(mux)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, actor *order.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := auth.GenerateJWT(testSecret, actor.ID, "someone@example.com", actor.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.server.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

var (
	customer   = order.Actor{ID: 10, Role: auth.RoleCustomer}
	restaurant = order.Actor{ID: 20, Role: auth.RoleRestaurant}
	rider      = order.Actor{ID: 30, Role: auth.RoleDeliveryPartner}
	admin      = order.Actor{ID: 1, Role: auth.RoleAdmin}
)

func readyOrder() *order.Order {
	return &order.Order{
		ID:               1,
		OrderNumber:      "ORD1001",
		CustomerID:       customer.ID,
		RestaurantID:     5,
		Status:           order.StatusReadyForPickup,
		VerificationCode: "482913",
		Total:            64500,
	}
}

// --- Tests ---

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)
	h.metrics.Inc(metrics.Handovers)

	w := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OK")

	w = h.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]uint64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap[metrics.Handovers])
}

func TestPlaceOrder(t *testing.T) {
	body := map[string]any{
		"restaurantId":    5,
		"deliveryAddress": "Jl. Malam 7",
		"items":           []map[string]any{{"menuItemId": 3, "quantity": 2}},
	}

	t.Run("Customer", func(t *testing.T) {
		h := newHarness(t, nil)
		placed := readyOrder()
		placed.Status = order.StatusPlaced
		h.orders.On("PlaceOrder", mock.Anything, order.PlaceOrderInput{
			CustomerID:      customer.ID,
			RestaurantID:    5,
			DeliveryAddress: "Jl. Malam 7",
			Items:           []order.PlaceOrderItem{{MenuItemID: 3, Quantity: 2}},
		}).Return(placed, nil)

		w := h.do(t, http.MethodPost, "/orders", body, &customer)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp order.OrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ORD1001", resp.OrderNumber)
		assert.Equal(t, "482913", resp.VerificationCode)
		h.orders.AssertExpectations(t)
	})

	t.Run("Anonymous", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("WrongRole", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders", body, &restaurant)
		assert.Equal(t, http.StatusForbidden, w.Code)
		h.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("NoItems", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders", map[string]any{"restaurantId": 5, "deliveryAddress": "x", "items": []any{}}, &customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, codeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("BadQuantity", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders", map[string]any{
			"restaurantId": 5, "deliveryAddress": "x",
			"items": []map[string]any{{"menuItemId": 3, "quantity": 0}},
		}, &customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders", `{"restaurantId":`, &customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, codeInvalidRequestBody, decodeError(t, w).Code)
	})
}

func TestAdvanceStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{order.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
		{fmt.Errorf("%w: order is already DELIVERED", order.ErrInvalidStatusTransition), http.StatusBadRequest, codeInvalidStatusTransition},
		{order.ErrConflict, http.StatusConflict, codeConflict},
		{order.ErrForbidden, http.StatusForbidden, codeForbidden},
		{fmt.Errorf("%w: connection reset", order.ErrPersistence), http.StatusInternalServerError, codeInternalError},
		{errors.New("boom"), http.StatusInternalServerError, codeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newHarness(t, nil)
			h.orders.On("AdvanceStatus", mock.Anything, "ORD1001", "CANCELLED", admin).Return(nil, tt.err)

			w := h.do(t, http.MethodPatch, "/orders/ORD1001/status", map[string]string{"status": "CANCELLED"}, &admin)
			assert.Equal(t, tt.status, w.Code)
			e := decodeError(t, w)
			assert.Equal(t, tt.code, e.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", e.Error)
			}
		})
	}
}

func TestAdvanceStatus_CustomerBlocked(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(t, http.MethodPatch, "/orders/ORD1001/status", map[string]string{"status": "CONFIRMED"}, &customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandover(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(t, nil)
		out := readyOrder()
		out.Status = order.StatusOutForDelivery
		h.orders.On("VerifyAndHandover", mock.Anything, "ORD1001", "482913", rider).Return(out, nil)

		w := h.do(t, http.MethodPost, "/orders/ORD1001/handover", map[string]string{"verificationCode": "482913"}, &rider)
		require.Equal(t, http.StatusOK, w.Code)

		var resp order.OrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, order.StatusOutForDelivery, resp.Status)
		assert.Empty(t, resp.VerificationCode)
	})

	t.Run("WrongCode", func(t *testing.T) {
		h := newHarness(t, nil)
		h.orders.On("VerifyAndHandover", mock.Anything, "ORD1001", "000000", restaurant).Return(nil, order.ErrInvalidVerificationCode)

		w := h.do(t, http.MethodPost, "/orders/ORD1001/handover", map[string]string{"verificationCode": "000000"}, &restaurant)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, codeInvalidVerificationCode, decodeError(t, w).Code)
	})

	t.Run("LockedOut", func(t *testing.T) {
		h := newHarness(t, nil)
		h.orders.On("VerifyAndHandover", mock.Anything, "ORD1001", "111111", restaurant).Return(nil, order.ErrTooManyAttempts)

		w := h.do(t, http.MethodPost, "/orders/ORD1001/handover", map[string]string{"verificationCode": "111111"}, &restaurant)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("MissingCode", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/orders/ORD1001/handover", map[string]string{}, &restaurant)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetOrderAndHistory(t *testing.T) {
	h := newHarness(t, nil)
	h.orders.On("GetOrder", mock.Anything, "ORD1001", customer).Return(readyOrder(), nil)
	h.orders.On("History", mock.Anything, "ORD1001", customer).Return([]order.StatusChange{
		{To: order.StatusPlaced, ActorID: 10, ActorRole: auth.RoleCustomer, ChangedAt: time.Now()},
	}, nil)

	w := h.do(t, http.MethodGet, "/orders/ORD1001", nil, &customer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"verificationCode":"482913"`)

	w = h.do(t, http.MethodGet, "/orders/ORD1001/history", nil, &customer)
	require.Equal(t, http.StatusOK, w.Code)
	var changes []order.StatusChangeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "CUSTOMER", changes[0].ActorRole)
}

func TestCancelAndAssign(t *testing.T) {
	h := newHarness(t, nil)
	cancelled := readyOrder()
	cancelled.Status = order.StatusCancelled
	h.orders.On("CancelOrder", mock.Anything, "ORD1001", admin).Return(cancelled, nil)
	h.orders.On("AssignDeliveryPartner", mock.Anything, "ORD1001", uint(30), restaurant).Return(readyOrder(), nil)

	w := h.do(t, http.MethodPost, "/orders/ORD1001/cancel", nil, &admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/orders/ORD1001/cancel", nil, &restaurant)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/orders/ORD1001/assign", map[string]uint{"deliveryPartnerId": 30}, &restaurant)
	assert.Equal(t, http.StatusOK, w.Code)
	h.orders.AssertExpectations(t)
}

func TestVerificationQR(t *testing.T) {
	t.Run("Owner", func(t *testing.T) {
		h := newHarness(t, nil)
		h.orders.On("GetOrder", mock.Anything, "ORD1001", customer).Return(readyOrder(), nil)

		w := h.do(t, http.MethodGet, "/orders/ORD1001/verification-qr", nil, &customer)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
	})

	t.Run("OtherCustomer", func(t *testing.T) {
		h := newHarness(t, nil)
		other := order.Actor{ID: 99, Role: auth.RoleCustomer}
		h.orders.On("GetOrder", mock.Anything, "ORD1001", other).Return(nil, order.ErrForbidden)

		w := h.do(t, http.MethodGet, "/orders/ORD1001/verification-qr", nil, &other)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Delivered", func(t *testing.T) {
		h := newHarness(t, nil)
		done := readyOrder()
		done.Status = order.StatusDelivered
		h.orders.On("GetOrder", mock.Anything, "ORD1001", customer).Return(done, nil)

		w := h.do(t, http.MethodGet, "/orders/ORD1001/verification-qr", nil, &customer)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Rider", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodGet, "/orders/ORD1001/verification-qr", nil, &rider)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("Register", func(t *testing.T) {
		h := newHarness(t, nil)
		in := user.RegisterInput{Email: "owl@example.com", Password: "night-owl-42", Name: "Owl", Role: auth.RoleCustomer}
		h.users.On("Register", mock.Anything, in).Return("tok", &user.User{ID: 1, Email: in.Email, Role: in.Role}, nil)

		w := h.do(t, http.MethodPost, "/auth/register", in, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "night-owl-42")

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.AccessTokenCookie, cookies[0].Name)
		assert.Equal(t, "tok", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("RegisterShortPassword", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email": "owl@example.com", "password": "short", "name": "Owl", "role": "CUSTOMER",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("LoginBadCredentials", func(t *testing.T) {
		h := newHarness(t, nil)
		h.users.On("Login", mock.Anything, "owl@example.com", "wrong").Return("", nil, user.ErrInvalidCredentials)

		w := h.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "owl@example.com", "password": "wrong"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, codeInvalidCredentials, decodeError(t, w).Code)
	})

	t.Run("LoginDuplicateEmailOnRegister", func(t *testing.T) {
		h := newHarness(t, nil)
		h.users.On("Register", mock.Anything, mock.Anything).Return("", nil, user.ErrEmailExists)

		w := h.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email": "owl@example.com", "password": "night-owl-42", "name": "Owl", "role": "CUSTOMER",
		}, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestListMenu(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(t, stubMenus{items: []menu.Item{{ID: 3, RestaurantID: 5, Name: "Midnight Ramen", Price: 45000, Available: true}}})
		w := h.do(t, http.MethodGet, "/restaurants/5/menu", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Midnight Ramen")
	})

	t.Run("Empty", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodGet, "/restaurants/5/menu", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("BadID", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodGet, "/restaurants/abc/menu", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPushRoutes(t *testing.T) {
	t.Run("Subscribe", func(t *testing.T) {
		h := newHarness(t, nil)
		h.notify.On("Subscribe", mock.Anything, mock.MatchedBy(func(s *notification.Subscription) bool {
			return s.UserID == rider.ID && s.Role == auth.RoleDeliveryPartner && s.P256dh == "k"
		})).Return(&notification.Subscription{ID: 4}, nil)

		w := h.do(t, http.MethodPost, "/push/subscriptions", map[string]any{
			"endpoint":       "https://push.example.com/abc",
			"expirationTime": nil,
			"keys":           map[string]string{"p256dh": "k", "auth": "a"},
		}, &rider)
		assert.Equal(t, http.StatusCreated, w.Code)
		h.notify.AssertExpectations(t)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		h := newHarness(t, nil)
		h.notify.On("Unsubscribe", mock.Anything, customer.ID, "https://push.example.com/abc").Return(nil)

		w := h.do(t, http.MethodDelete, "/push/subscriptions", map[string]string{"endpoint": "https://push.example.com/abc"}, &customer)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("AdminSchedules", func(t *testing.T) {
		h := newHarness(t, nil)
		at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		h.notify.On("Schedule", mock.Anything, mock.MatchedBy(func(n *notification.Notification) bool {
			return n.ScheduledAt != nil && n.ScheduledAt.Equal(at) && n.TargetRole == auth.RoleDeliveryPartner
		})).Return(&notification.Notification{ID: "n-1", Status: notification.StatusPending}, nil)

		w := h.do(t, http.MethodPost, "/admin/notifications", map[string]any{
			"title": "Surge", "body": "Busy night ahead", "targetRole": "DELIVERY_PARTNER", "scheduledAt": at,
		}, &admin)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("AdminSendsNow", func(t *testing.T) {
		h := newHarness(t, nil)
		h.notify.On("SendNow", mock.Anything, mock.Anything).Return(nil, notification.ErrInvalidTarget)

		w := h.do(t, http.MethodPost, "/admin/notifications", map[string]any{"title": "t", "body": "b"}, &admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NonAdmin", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(t, http.MethodPost, "/admin/notifications", map[string]any{"title": "t", "body": "b"}, &restaurant)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
