package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercart/storefront/internal/checkout"
	"github.com/evercart/storefront/internal/session"
	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
	"github.com/evercart/storefront/internal/storefront/infra/restapi"
)

// ── In-memory fakes ──

type memSessionStore struct {
	mu   sync.Mutex
	sess *session.Session
}

func (m *memSessionStore) Load(context.Context) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, session.ErrNoSession
	}
	s := *m.sess
	return &s, nil
}

func (m *memSessionStore) Save(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sess = &copied
	return nil
}

func (m *memSessionStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

type fakeAccount struct {
	user *entity.User
	err  error
}

func (f *fakeAccount) Profile(context.Context, string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeCatalog struct {
	product *entity.Product
}

func (f *fakeCatalog) Product(context.Context, string) (*entity.Product, error) {
	return f.product, nil
}

type fakeCheckoutService struct {
	validateErr error
	coupon      *entity.Coupon
	verifyErr   error
}

func (f *fakeCheckoutService) ValidateAddress(context.Context, ports.ValidateAddressRequest) error {
	return f.validateErr
}

func (f *fakeCheckoutService) VerifyCoupon(context.Context, ports.VerifyCouponRequest) (*entity.Coupon, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	c := *f.coupon
	return &c, nil
}

type fakePayment struct {
	redirectURL string
	err         error
}

func (f *fakePayment) Initiate(context.Context, ports.InitiatePaymentRequest) (string, error) {
	return f.redirectURL, f.err
}

type fakeOrders struct {
	order     *entity.Order
	createErr error
	getErr    error
}

func (f *fakeOrders) Create(context.Context, ports.CreateOrderRequest) (*entity.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.order, nil
}

func (f *fakeOrders) Get(context.Context, string) (*entity.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.order, nil
}

func (f *fakeOrders) Cancel(context.Context, string) (*entity.Order, error) {
	cancelled := *f.order
	cancelled.Status = entity.StatusCancelled
	return &cancelled, nil
}

// ── Fixture ──

type fixture struct {
	server   *httptest.Server
	sessions *memSessionStore
	account  *fakeAccount
	checkout *fakeCheckoutService
	payment  *fakePayment
	orders   *fakeOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: &memSessionStore{},
		account: &fakeAccount{user: &entity.User{
			ID:        "u1",
			Name:      "Asha",
			Email:     "asha@example.com",
			Addresses: []entity.Address{{ID: "addr-1", City: "Pune"}},
		}},
		checkout: &fakeCheckoutService{coupon: &entity.Coupon{Code: "SAVE50", DiscountAmount: 50}},
		payment:  &fakePayment{redirectURL: "https://pay.example/session/xyz"},
		orders: &fakeOrders{order: &entity.Order{
			ID:        "ord-1",
			UserID:    "u1",
			Status:    entity.StatusPending,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}},
	}

	handler := NewHandler(
		checkout.NewStore(),
		checkout.Backends{Checkout: f.checkout, Payment: f.payment, Orders: f.orders},
		checkout.Config{DeliveryFee: 30},
		f.account,
		&fakeCatalog{product: &entity.Product{ID: "p1", Name: "Mug", Price: 100, Stock: 7}},
		f.sessions,
	)
	f.server = httptest.NewServer(NewRouter(handler))
	t.Cleanup(f.server.Close)
	return f
}

func validToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	resp := f.request(t, http.MethodPut, "/session", StartSessionRequest{UserID: "u1", Token: validToken(t)})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func (f *fixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ── Tests ──

func TestCheckoutRequiresSession(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "not_authenticated", body.Error)
}

func TestFullCashOnDeliveryCheckout(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[DraftResponse](t, resp)
	base := "/checkout/" + draft.DraftID

	resp = f.request(t, http.MethodPut, base+"/items", SetItemsRequest{
		Items: []ItemDTO{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft = decode[DraftResponse](t, resp)
	assert.InDelta(t, 200, draft.Totals.Subtotal, 1e-9)

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adv := decode[AdvanceResponse](t, resp)
	assert.Equal(t, "SelectAddress", adv.StepName)

	resp = f.request(t, http.MethodPut, base+"/address", SelectAddressRequest{AddressID: "addr-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adv = decode[AdvanceResponse](t, resp)
	assert.Equal(t, "ApplyCoupon", adv.StepName)

	resp = f.request(t, http.MethodPost, base+"/coupon", ApplyCouponRequest{Code: "SAVE50"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft = decode[DraftResponse](t, resp)
	require.NotNil(t, draft.Coupon)
	assert.InDelta(t, 50, draft.Totals.Discount, 1e-9)

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodPut, base+"/payment", ChoosePaymentRequest{Method: "cod"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft = decode[DraftResponse](t, resp)
	assert.InDelta(t, 180, draft.Totals.Total, 1e-9) // 200 - 50 + 30, no tax on COD

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adv = decode[AdvanceResponse](t, resp)
	assert.Equal(t, "Summary", adv.StepName)

	resp = f.request(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[OrderResponse](t, resp)
	assert.Equal(t, "ord-1", order.ID)

	// The draft is destroyed on successful submission.
	resp = f.request(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestOnlinePaymentRedirectAndReturn(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	draft := decode[DraftResponse](t, resp)
	base := "/checkout/" + draft.DraftID

	f.request(t, http.MethodPut, base+"/items", SetItemsRequest{
		Items: []ItemDTO{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
	}).Body.Close()
	f.request(t, http.MethodPost, base+"/advance", nil).Body.Close()
	f.request(t, http.MethodPut, base+"/address", SelectAddressRequest{AddressID: "addr-1"}).Body.Close()
	f.request(t, http.MethodPost, base+"/advance", nil).Body.Close()
	f.request(t, http.MethodPost, base+"/advance", nil).Body.Close()
	f.request(t, http.MethodPut, base+"/payment", ChoosePaymentRequest{Method: "online"}).Body.Close()

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adv := decode[AdvanceResponse](t, resp)
	assert.Equal(t, "https://pay.example/session/xyz", adv.RedirectURL)
	assert.Equal(t, "ChoosePayment", adv.StepName)

	resp = f.request(t, http.MethodGet, base+"/payment/return", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft = decode[DraftResponse](t, resp)
	assert.Equal(t, "Summary", draft.StepName)
	assert.InDelta(t, 240, draft.Totals.Total, 1e-9) // 5% tax on 200
}

func TestBackendRejectionSurfacedVerbatim(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.checkout.validateErr = &restapi.BackendError{
		StatusCode: http.StatusOK,
		Message:    "we do not deliver to this pincode",
	}

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	draft := decode[DraftResponse](t, resp)
	base := "/checkout/" + draft.DraftID

	f.request(t, http.MethodPut, base+"/items", SetItemsRequest{
		Items: []ItemDTO{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
	}).Body.Close()
	f.request(t, http.MethodPost, base+"/advance", nil).Body.Close()
	f.request(t, http.MethodPut, base+"/address", SelectAddressRequest{AddressID: "addr-1"}).Body.Close()

	resp = f.request(t, http.MethodPost, base+"/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "backend_rejected", body.Error)
	assert.Equal(t, "we do not deliver to this pincode", body.Message)

	// Still on the address step.
	resp = f.request(t, http.MethodGet, base, nil)
	draft = decode[DraftResponse](t, resp)
	assert.Equal(t, "SelectAddress", draft.StepName)
}

func TestEmptyCartAdvanceIsValidationError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	draft := decode[DraftResponse](t, resp)

	resp = f.request(t, http.MethodPost, "/checkout/"+draft.DraftID+"/advance", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "validation_error", body.Error)
}

func TestAuthFailureClearsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.account.err = fmt.Errorf("fetch profile: %w", restapi.ErrUnauthorized)

	resp := f.request(t, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "session_expired", body.Error)

	// The stored session is gone: the next request fails before reaching
	// the backend at all.
	f.account.err = nil
	resp = f.request(t, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = decode[ErrorResponse](t, resp)
	assert.Equal(t, "not_authenticated", body.Error)
}

func TestCancelOutsideWindowRejectedLocally(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.orders.order.CreatedAt = time.Now().Add(-4 * 24 * time.Hour)

	resp := f.request(t, http.MethodPost, "/orders/ord-1/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "not_cancellable", body.Error)
}

func TestCancelWithinWindow(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/orders/ord-1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := decode[OrderResponse](t, resp)
	assert.Equal(t, string(entity.StatusCancelled), order.Status)
}

func TestAbandonCheckoutDropsDraft(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	draft := decode[DraftResponse](t, resp)
	base := "/checkout/" + draft.DraftID

	resp = f.request(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownAddressRejectedBeforeBackend(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp := f.request(t, http.MethodPost, "/checkout", nil)
	draft := decode[DraftResponse](t, resp)
	base := "/checkout/" + draft.DraftID

	f.request(t, http.MethodPut, base+"/items", SetItemsRequest{
		Items: []ItemDTO{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
	}).Body.Close()
	f.request(t, http.MethodPost, base+"/advance", nil).Body.Close()

	resp = f.request(t, http.MethodPut, base+"/address", SelectAddressRequest{AddressID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "unknown_address", body.Error)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product := decode[ProductResponse](t, resp)
	assert.Equal(t, "Mug", product.Name)
	assert.InDelta(t, 100, product.Price, 1e-9)
}
