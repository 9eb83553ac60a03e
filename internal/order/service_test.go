package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tailor-be/internal/measurement"
	"tailor-be/internal/product"
	"tailor-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) (*Order, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetForUser(ctx context.Context, userID, id int64) (*Order, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter) ([]*Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, o *Order) (*Order, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Order, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type stubProducts map[int64]*product.Product

func (s stubProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, product.ErrNotFound
}

// stubMeasurements keys measurement ids by owner.
type stubMeasurements map[int64]int64

func (s stubMeasurements) GetByID(_ context.Context, userID, id int64) (*measurement.Measurement, error) {
	if owner, ok := s[id]; ok && owner == userID {
		return &measurement.Measurement{ID: id, UserID: userID}, nil
	}
	return nil, measurement.ErrNotFound
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *MockRepository, products stubProducts) *service {
	svc := NewService(repo, products, stubMeasurements{5: 1}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func pendingOrder() *Order {
	return &Order{
		ID: 11, UserID: 1, ProductID: 7, Quantity: 2,
		FabricName: "Linen", FabricPrice: d("8000"),
		ColorName: strPtr("Gold"), ColorExtraPrice: d("3000"),
		UnitPrice: d("101000"), TotalCost: d("202000"),
		DeliveryDate:    fixedNow.Add(10 * 24 * time.Hour),
		DeliveryAddress: "12 Marina, Lagos",
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
	}
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, stubProducts{7: agbada()})

	repo.On("Create", mock.Anything, mock.MatchedBy(func(o *Order) bool {
		return o.UserID == 1 && o.FabricName == "Linen" && *o.ColorName == "Gold" &&
			o.UnitPrice.Equal(d("101000")) && o.TotalCost.Equal(d("202000")) &&
			o.DeliveryAddress == "12 Marina, Lagos"
	})).Return(pendingOrder(), nil)

	o, b, err := svc.Create(context.Background(), 1, CreateInput{
		ProductID: 7, Quantity: 2, Fabric: " Linen ", Color: strPtr("Gold"),
		DeliveryDate: "2026-03-20", DeliveryAddress: " 12 Marina, Lagos ",
		MeasurementID: func() *int64 { v := int64(5); return &v }(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), o.ID)
	assert.True(t, b.TotalCost.Equal(d("202000")))
	repo.AssertExpectations(t)
}

func TestService_CreateRejections(t *testing.T) {
	foreign := int64(9)
	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"MissingProduct", CreateInput{ProductID: 99, Quantity: 1, Fabric: "Linen", DeliveryDate: "2026-04-01"}, ErrProductNotFound},
		{"PastDate", CreateInput{ProductID: 7, Quantity: 1, Fabric: "Linen", DeliveryDate: "2026-03-01"}, ErrDeliveryDateInPast},
		{"BadDate", CreateInput{ProductID: 7, Quantity: 1, Fabric: "Linen", DeliveryDate: "soon"}, ErrInvalidDeliveryDate},
		{"ForeignMeasurement", CreateInput{ProductID: 7, Quantity: 1, Fabric: "Linen", DeliveryDate: "2026-04-01", MeasurementID: &foreign}, ErrMeasurementNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newTestService(repo, stubProducts{7: agbada()})

			_, _, err := svc.Create(context.Background(), 1, tc.in)
			assert.ErrorIs(t, err, tc.want)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("UnavailableFabric", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, stubProducts{7: agbada()})

		_, _, err := svc.Create(context.Background(), 1, CreateInput{
			ProductID: 7, Quantity: 1, Fabric: "Aso Oke", DeliveryDate: "2026-04-01",
		})
		var optErr *OptionError
		assert.ErrorAs(t, err, &optErr)
	})
}

func TestService_UpdateReprices(t *testing.T) {
	repo := new(MockRepository)
	p := agbada()
	p.BasePrice = d("95000")
	svc := newTestService(repo, stubProducts{7: p})

	repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(pendingOrder(), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(o *Order) bool {
		// 95000 + 8000 + 3000 at the current catalogue price
		return o.Quantity == 3 && o.UnitPrice.Equal(d("106000")) && o.TotalCost.Equal(d("318000"))
	})).Return(pendingOrder(), nil)

	qty := 3
	_, err := svc.Update(context.Background(), 1, 11, UpdateInput{Quantity: &qty})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_UpdateWithoutRepricing(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, stubProducts{})

	repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(pendingOrder(), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(o *Order) bool {
		return o.DeliveryAddress == "3 Allen Ave" && o.TotalCost.Equal(d("202000"))
	})).Return(pendingOrder(), nil)

	_, err := svc.Update(context.Background(), 1, 11, UpdateInput{DeliveryAddress: strPtr("3 Allen Ave")})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_UpdateRejections(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		svc := newTestService(new(MockRepository), nil)
		_, err := svc.Update(context.Background(), 1, 11, UpdateInput{})
		assert.ErrorIs(t, err, ErrNothingToUpdate)
	})

	t.Run("Paid", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		o := pendingOrder()
		o.PaymentStatus = PaymentPaid
		repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(o, nil)

		_, err := svc.Update(context.Background(), 1, 11, UpdateInput{Notes: strPtr("x")})
		assert.ErrorIs(t, err, ErrNotEditable)
	})

	t.Run("PastDate", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(pendingOrder(), nil)

		_, err := svc.Update(context.Background(), 1, 11, UpdateInput{DeliveryDate: strPtr("2026-03-09")})
		assert.ErrorIs(t, err, ErrDeliveryDateInPast)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestService_Delete(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)

	paid := pendingOrder()
	paid.PaymentStatus = PaymentPaid
	repo.On("GetForUser", mock.Anything, int64(1), int64(12)).Return(paid, nil)
	repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(pendingOrder(), nil)
	repo.On("Delete", mock.Anything, int64(1), int64(11)).Return(nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), 1, 12), ErrAlreadyPaid)
	assert.NoError(t, svc.Delete(context.Background(), 1, 11))
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestService_UpdateStatus(t *testing.T) {
	t.Run("Allowed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		o := pendingOrder()
		o.Status, o.PaymentStatus = StatusInProgress, PaymentPaid
		ready := pendingOrder()
		ready.Status = StatusReady

		repo.On("GetByID", mock.Anything, int64(11)).Return(o, nil)
		repo.On("UpdateStatus", mock.Anything, int64(11), StatusInProgress, StatusReady).Return(ready, nil)

		got, err := svc.UpdateStatus(context.Background(), 11, StatusReady)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, got.Status)
	})

	t.Run("UnpaidToInProgress", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		repo.On("GetByID", mock.Anything, int64(11)).Return(pendingOrder(), nil)

		_, err := svc.UpdateStatus(context.Background(), 11, StatusInProgress)
		assert.ErrorIs(t, err, ErrPaymentRequired)
	})

	t.Run("FromTerminal", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		o := pendingOrder()
		o.Status = StatusCancelled
		repo.On("GetByID", mock.Anything, int64(11)).Return(o, nil)

		_, err := svc.UpdateStatus(context.Background(), 11, StatusReady)
		var terr *TransitionError
		assert.ErrorAs(t, err, &terr)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SameStatus", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		repo.On("GetByID", mock.Anything, int64(11)).Return(pendingOrder(), nil)

		got, err := svc.UpdateStatus(context.Background(), 11, StatusPending)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got.Status)
	})
}

func TestService_ListDefaults(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	uid := int64(1)

	repo.On("List", mock.Anything, ListFilter{UserID: &uid, Limit: 20, Page: 1}).
		Return([]*Order{pendingOrder()}, int64(1), nil)

	res, err := svc.List(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, 20, res.Limit)
}

// ---------- handler ----------

func asUser(r *http.Request, id int64) *http.Request {
	return r.WithContext(utils.SetIdentity(r.Context(), utils.Identity{ID: id}))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(newTestService(repo, stubProducts{7: agbada()}))
	repo.On("Create", mock.Anything, mock.Anything).Return(pendingOrder(), nil)

	body := `{"productId":7,"quantity":2,"selectedFabric":"Linen","selectedColor":"Gold",
		"deliveryDate":"2026-03-20","deliveryAddress":"12 Marina, Lagos"}`
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/users/createOrder", strings.NewReader(body)), 1)
	w := httptest.NewRecorder()
	h.Create(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["orderId"])
	breakdown := data["breakdown"].(map[string]interface{})
	assert.Equal(t, "202000", breakdown["totalCost"])
	assert.Equal(t, "101000", breakdown["unitPrice"])
}

func TestHandler_CreateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"MissingFields", `{"productId":7}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"UnavailableColor", `{"productId":7,"quantity":1,"selectedFabric":"Linen","selectedColor":"Wine","deliveryDate":"2026-04-01","deliveryAddress":"x"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"UnknownProduct", `{"productId":8,"quantity":1,"selectedFabric":"Linen","deliveryDate":"2026-04-01","deliveryAddress":"x"}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(newTestService(new(MockRepository), stubProducts{7: agbada()}))
			r := asUser(httptest.NewRequest(http.MethodPost, "/api/users/createOrder", strings.NewReader(tc.body)), 1)
			w := httptest.NewRecorder()
			h.Create(w, r)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode(t, w)["code"])
		})
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	h := NewHandler(newTestService(new(MockRepository), nil))
	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/users/getOrders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_GetOtherUsersOrder(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(newTestService(repo, nil))
	repo.On("GetForUser", mock.Anything, int64(2), int64(11)).Return(nil, ErrNotFound)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/getOrder/{id}", h.Get)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/api/users/getOrder/11", nil), 2))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DeletePaid(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(newTestService(repo, nil))
	paid := pendingOrder()
	paid.PaymentStatus = PaymentPaid
	repo.On("GetForUser", mock.Anything, int64(1), int64(11)).Return(paid, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/users/deleteOrder/{id}", h.Delete)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodDelete, "/api/users/deleteOrder/11", nil), 1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ALREADY_PAID", decode(t, w)["code"])
}

func TestHandler_AdminList(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(newTestService(repo, nil))
	st := StatusInProgress
	ps := PaymentPaid
	repo.On("List", mock.Anything, ListFilter{Status: &st, PaymentStatus: &ps, Limit: 20, Page: 1}).
		Return([]*Order{}, int64(0), nil)

	w := httptest.NewRecorder()
	h.AdminList(w, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=In+Progress&paymentStatus=paid", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.AdminList(w, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=shipped", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNumberOfCalls(t, "List", 1)
}

func TestHandler_UpdateStatus(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(newTestService(repo, nil))
	repo.On("GetByID", mock.Anything, int64(11)).Return(pendingOrder(), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", h.UpdateStatus)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/admin/orders/11/status",
		strings.NewReader(`{"status":"Delivered"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/admin/orders/11/status",
		strings.NewReader(`{"status":"Lost"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])
}

func TestMapError_PassesThroughUnknown(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, mapError(boom))
}
