package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evercart/storefront/internal/checkout"
	"github.com/evercart/storefront/internal/session"
	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
	"github.com/evercart/storefront/internal/storefront/infra/restapi"
)

// Handler exposes the checkout flow and its supporting lookups to the
// rendering layer. It owns no business rules: every decision is either the
// flow's or the backend's.
type Handler struct {
	drafts   *checkout.Store
	backends checkout.Backends
	flowCfg  checkout.Config
	account  ports.AccountService
	catalog  ports.CatalogService
	orders   ports.OrderService
	sessions session.Store

	// now is stubbed in tests that poke at the cancellation window.
	now func() time.Time
}

// NewHandler wires the handler with its collaborators.
func NewHandler(
	drafts *checkout.Store,
	backends checkout.Backends,
	flowCfg checkout.Config,
	account ports.AccountService,
	catalog ports.CatalogService,
	sessions session.Store,
) *Handler {
	return &Handler{
		drafts:   drafts,
		backends: backends,
		flowCfg:  flowCfg,
		account:  account,
		catalog:  catalog,
		orders:   backends.Orders,
		sessions: sessions,
		now:      time.Now,
	}
}

// ── Session ──

// StartSession stores the authenticated user and bearer token handed over
// after the backend's sign-in flow. Token issuance itself is backend-owned.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.UserID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id and token are required")
		return
	}

	sess := &session.Session{UserID: req.UserID, Token: req.Token, SavedAt: h.now().UTC()}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "session_store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndSession signs the customer out.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "session_store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentSession loads the signed-in customer, writing the 401 itself when
// there is none or the token is past its expiry.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Load(r.Context())
	if errors.Is(err, session.ErrNoSession) {
		writeError(w, http.StatusUnauthorized, "not_authenticated", "sign in to continue")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session_store_error", err.Error())
		return nil, false
	}
	if sess.ExpiredAt(h.now()) {
		_ = h.sessions.Clear(r.Context())
		writeError(w, http.StatusUnauthorized, "session_expired", "sign in again to continue")
		return nil, false
	}
	return sess, true
}

// ── Profile and catalog ──

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	user, err := h.account.Profile(r.Context(), sess.UserID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProfileToResponse(user))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "product_id_required", "")
		return
	}

	product, err := h.catalog.Product(r.Context(), productID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Images:      product.Images,
	})
}

// ── Checkout flow ──

// StartCheckout creates a fresh draft for the signed-in customer.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	flow := checkout.NewFlow(r.Context(), sess.UserID, h.backends, h.flowCfg)
	h.drafts.Put(flow)

	slog.InfoContext(r.Context(), "checkout started", "draft_id", flow.ID(), "user_id", sess.UserID)
	writeJSON(w, http.StatusCreated, mapDraftToResponse(flow))
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

// AbandonCheckout discards a draft the customer walked away from, leaving an
// ABANDONED entry in the flow log for funnel analysis.
func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	if err := flow.Abandon(r.Context()); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	h.drafts.Delete(flow.ID())

	slog.InfoContext(r.Context(), "checkout abandoned", "draft_id", flow.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetItems(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	var req SetItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	items := make([]entity.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, entity.OrderItem{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	if err := flow.SetItems(items); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

// SelectAddress resolves the address ID against the customer's address book
// and stores the snapshot on the draft. Deliverability is checked by the
// backend when the flow advances.
func (h *Handler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}

	var req SelectAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.AddressID == "" {
		writeError(w, http.StatusBadRequest, "address_id_required", "")
		return
	}

	user, err := h.account.Profile(r.Context(), sess.UserID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}
	addr, found := user.AddressByID(req.AddressID)
	if !found {
		writeError(w, http.StatusBadRequest, "unknown_address", "address is not in your address book")
		return
	}

	if err := flow.SelectAddress(addr); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := flow.ApplyCoupon(r.Context(), req.Code); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

func (h *Handler) ChoosePayment(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	var req ChoosePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := flow.ChoosePayment(entity.PaymentMethod(req.Method)); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

// Advance moves the flow forward one step. On the payment step with the
// online option the response carries the external payment page URL instead
// of a new step; the flow stays put until the payment return lands.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	redirectURL, err := flow.Advance(r.Context())
	if err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdvanceResponse{
		Step:        int(flow.Step()),
		StepName:    flow.Step().String(),
		RedirectURL: redirectURL,
	})
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	if err := flow.Back(r.Context()); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

// PaymentReturn is where the external payment processor redirects the
// customer after a successful online payment.
func (h *Handler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	if err := flow.CompletePaymentReturn(r.Context()); err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapDraftToResponse(flow))
}

// Submit posts the assembled order. On success the draft is destroyed and
// the persisted order returned; on failure the draft survives for a retry.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flowFromRequest(w, r)
	if !ok {
		return
	}

	order, err := flow.Submit(r.Context())
	if err != nil {
		h.writeFlowFailure(w, r, err)
		return
	}

	h.drafts.Delete(flow.ID())
	writeJSON(w, http.StatusCreated, h.mapOrderToResponse(order))
}

// ── Orders ──

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentSession(w, r); !ok {
		return
	}
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.mapOrderToResponse(order))
}

// CancelOrder requests the PENDING/CONFIRMED -> CANCELLED transition. The
// window check runs locally first so an obviously late request never
// reaches the backend.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentSession(w, r); !ok {
		return
	}
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}
	if !order.CancellableAt(h.now()) {
		writeError(w, http.StatusConflict, "not_cancellable",
			"orders can only be cancelled within 3 days of placement")
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), orderID)
	if err != nil {
		h.writeBackendFailure(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "order cancelled", "order_id", orderID)
	writeJSON(w, http.StatusOK, h.mapOrderToResponse(cancelled))
}

// ── Helpers ──

func (h *Handler) flow(w http.ResponseWriter, r *http.Request) (*checkout.Flow, bool) {
	draftID := chi.URLParam(r, "id")
	if draftID == "" {
		writeError(w, http.StatusBadRequest, "draft_id_required", "")
		return nil, false
	}
	flow, ok := h.drafts.Get(draftID)
	if !ok {
		writeError(w, http.StatusNotFound, "draft_not_found", "")
		return nil, false
	}
	return flow, true
}

// flowFromRequest is the common prologue: authenticated session plus an
// existing draft.
func (h *Handler) flowFromRequest(w http.ResponseWriter, r *http.Request) (*checkout.Flow, bool) {
	if _, ok := h.currentSession(w, r); !ok {
		return nil, false
	}
	return h.flow(w, r)
}

// writeFlowFailure maps checkout errors onto the HTTP surface. Validation
// errors are the customer's to fix (400), sequencing conflicts are 409, and
// anything from the backend goes through writeBackendFailure.
func (h *Handler) writeFlowFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoAddress),
		errors.Is(err, checkout.ErrNoPaymentOption),
		errors.Is(err, checkout.ErrCouponCode),
		errors.Is(err, checkout.ErrInvalidPayment),
		errors.Is(err, checkout.ErrQuantity),
		errors.Is(err, checkout.ErrNegativePrice),
		errors.Is(err, checkout.ErrDuplicateProduct):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, checkout.ErrWrongStep),
		errors.Is(err, checkout.ErrAtFirstStep),
		errors.Is(err, checkout.ErrPaymentPending),
		errors.Is(err, checkout.ErrCartChanged),
		errors.Is(err, checkout.ErrCompleted):
		writeError(w, http.StatusConflict, "flow_conflict", err.Error())
	case errors.Is(err, checkout.ErrRequestInFlight):
		writeError(w, http.StatusConflict, "request_in_flight", err.Error())
	default:
		h.writeBackendFailure(w, r, err)
	}
}

// writeBackendFailure surfaces backend rejections with the backend's own
// message, clears the session on auth failure, and keeps transport errors
// generic.
func (h *Handler) writeBackendFailure(w http.ResponseWriter, r *http.Request, err error) {
	var backendErr *restapi.BackendError
	switch {
	case errors.Is(err, restapi.ErrUnauthorized):
		if clearErr := h.sessions.Clear(r.Context()); clearErr != nil {
			slog.ErrorContext(r.Context(), "session clear failed", "error", clearErr)
		}
		writeError(w, http.StatusUnauthorized, "session_expired", "sign in again to continue")
	case errors.As(err, &backendErr):
		writeError(w, http.StatusUnprocessableEntity, "backend_rejected", backendErr.Message)
	default:
		slog.ErrorContext(r.Context(), "backend call failed", "error", err)
		writeError(w, http.StatusBadGateway, "backend_unavailable", "the store is temporarily unavailable, try again")
	}
}

func mapDraftToResponse(flow *checkout.Flow) DraftResponse {
	d := flow.Draft()
	resp := DraftResponse{
		DraftID:        d.ID,
		Step:           int(flow.Step()),
		StepName:       flow.Step().String(),
		PaymentPending: flow.PaymentPending(),
		Items:          make([]ItemDTO, 0, len(d.Items)),
		AddressID:      d.Address.ID,
		PaymentMethod:  string(d.Payment),
		Totals:         mapTotalsToResponse(d.Totals),
	}
	for _, it := range d.Items {
		resp.Items = append(resp.Items, ItemDTO{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	if d.Coupon != nil {
		resp.Coupon = &CouponResponse{Code: d.Coupon.Code, DiscountAmount: d.Coupon.DiscountAmount}
	}
	return resp
}

func (h *Handler) mapOrderToResponse(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:            order.ID,
		UserID:        order.UserID,
		Items:         make([]ItemDTO, 0, len(order.Items)),
		Address:       mapAddressToResponse(order.Address),
		Totals:        mapTotalsToResponse(order.Totals),
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		Cancellable:   order.CancellableAt(h.now()),
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range order.Items {
		resp.Items = append(resp.Items, ItemDTO{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	if order.Coupon != nil {
		resp.Coupon = &CouponResponse{Code: order.Coupon.Code, DiscountAmount: order.Coupon.DiscountAmount}
	}
	return resp
}

func mapProfileToResponse(user *entity.User) ProfileResponse {
	resp := ProfileResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Wishlist: user.Wishlist,
	}
	for _, a := range user.Addresses {
		resp.Addresses = append(resp.Addresses, mapAddressToResponse(a))
	}
	return resp
}

func mapAddressToResponse(a entity.Address) AddressResponse {
	return AddressResponse{
		ID:         a.ID,
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func mapTotalsToResponse(t entity.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		Delivery: t.Delivery,
		Discount: t.Discount,
		Total:    t.Total,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
