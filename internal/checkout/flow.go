package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/evercart/storefront/internal/checkout/flowlog"
	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

// Step is an ordinal position in the checkout flow.
type Step int

const (
	StepSelectProducts Step = iota + 1
	StepSelectAddress
	StepApplyCoupon
	StepChoosePayment
	StepSummary
)

func (s Step) String() string {
	switch s {
	case StepSelectProducts:
		return "SelectProducts"
	case StepSelectAddress:
		return "SelectAddress"
	case StepApplyCoupon:
		return "ApplyCoupon"
	case StepChoosePayment:
		return "ChoosePayment"
	case StepSummary:
		return "Summary"
	}
	return "Unknown"
}

var (
	ErrEmptyCart       = errors.New("checkout: no products selected")
	ErrNoAddress       = errors.New("checkout: no delivery address selected")
	ErrNoPaymentOption = errors.New("checkout: no payment option chosen")
	ErrCouponCode      = errors.New("checkout: coupon code is required")
	ErrWrongStep       = errors.New("checkout: operation not allowed on this step")
	ErrAtFirstStep     = errors.New("checkout: already at the first step")
	ErrRequestInFlight = errors.New("checkout: a request for this action is already in progress")
	ErrCartChanged     = errors.New("checkout: cart changed while the coupon was being verified")
	ErrPaymentPending  = errors.New("checkout: waiting for the payment page to return")
	ErrCompleted       = errors.New("checkout: draft already submitted")
	ErrInvalidPayment  = errors.New("checkout: unknown payment option")
)

// concern names a kind of backend request. At most one request per concern
// may be in flight for a flow at any time, mirroring the disabled control in
// the UI while its request is outstanding.
type concern string

const (
	concernAddress concern = "address_validation"
	concernCoupon  concern = "coupon_verification"
	concernPayment concern = "payment_initiation"
	concernSubmit  concern = "order_submission"
)

// Backends bundles the remote services the flow orchestrates.
type Backends struct {
	Checkout ports.CheckoutService
	Payment  ports.PaymentService
	Orders   ports.OrderService
}

// Config carries the per-deployment knobs of a flow.
type Config struct {
	// DeliveryFee is the flat delivery charge applied to non-empty carts.
	DeliveryFee float64

	// Log receives every flow transition. nil-safe: logging skipped if nil.
	Log flowlog.Repository
}

// Flow drives one checkout draft through the five ordered steps, holding
// all transient state and issuing the backend calls each transition needs.
// All methods are safe for concurrent use; the mutex is released while a
// backend call is in flight so reads and backward navigation stay live.
type Flow struct {
	mu       sync.Mutex
	draft    Draft
	step     Step
	backends Backends
	log      flowlog.Repository

	// validatedAddr is the address ID the backend last confirmed as
	// deliverable. Forward transition past address selection requires it to
	// match the currently selected address.
	validatedAddr string

	// paymentPending is set between a successful online payment initiation
	// and the external payment page redirecting back.
	paymentPending bool

	// submitted holds the persisted order once submission succeeds; the
	// flow is finished from then on.
	submitted *entity.Order

	inflight map[concern]bool
}

// NewFlow starts a fresh draft for the given user.
func NewFlow(ctx context.Context, userID string, backends Backends, cfg Config) *Flow {
	f := &Flow{
		draft: Draft{
			ID:          uuid.NewString(),
			UserID:      userID,
			DeliveryFee: cfg.DeliveryFee,
		},
		step:     StepSelectProducts,
		backends: backends,
		log:      cfg.Log,
		inflight: make(map[concern]bool),
	}
	f.record(ctx, flowlog.StatusStarted, "")
	return f
}

// ID returns the draft identifier.
func (f *Flow) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.ID
}

// Step returns the current flow step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns a snapshot of the draft, including derived totals.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.clone()
}

// PaymentPending reports whether an online payment handoff is outstanding.
func (f *Flow) PaymentPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentPending
}

// Submitted returns the persisted order once submission has succeeded.
func (f *Flow) Submitted() *entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// SetItems replaces the selected products. Only allowed while on the
// product selection step; navigating back first is how a customer edits the
// cart later in the flow. A composition change clears any verified coupon.
func (f *Flow) SetItems(items []entity.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	if f.step != StepSelectProducts {
		return ErrWrongStep
	}
	return f.draft.setItems(items)
}

// SelectAddress records the chosen delivery address. The snapshot is kept
// so the order carries the address as it was at checkout time. Selecting a
// different address discards any prior validation result.
func (f *Flow) SelectAddress(addr entity.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	if f.step != StepSelectAddress {
		return ErrWrongStep
	}
	f.draft.Address = addr
	return nil
}

// ChoosePayment records the payment option and re-derives totals, since tax
// depends on it. Changing the option abandons a pending online handoff.
func (f *Flow) ChoosePayment(method entity.PaymentMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	if f.step != StepChoosePayment {
		return ErrWrongStep
	}
	switch method {
	case entity.PaymentCashOnDelivery, entity.PaymentOnline:
	default:
		return ErrInvalidPayment
	}
	f.draft.Payment = method
	f.paymentPending = false
	f.draft.recompute()
	return nil
}

// ApplyCoupon verifies the code against the first selected product and the
// current subtotal. Success replaces any prior coupon; failure surfaces the
// backend's message and leaves the prior discount untouched.
func (f *Flow) ApplyCoupon(ctx context.Context, code string) error {
	f.mu.Lock()
	if f.submitted != nil {
		f.mu.Unlock()
		return ErrCompleted
	}
	if f.step != StepApplyCoupon {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if code == "" {
		f.mu.Unlock()
		return ErrCouponCode
	}
	if len(f.draft.Items) == 0 {
		f.mu.Unlock()
		return ErrEmptyCart
	}
	if f.inflight[concernCoupon] {
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	f.inflight[concernCoupon] = true
	// Snapshot the composition the verification runs against; the commit
	// below is only valid while it still holds.
	snapshot := append([]entity.OrderItem(nil), f.draft.Items...)
	req := ports.VerifyCouponRequest{
		Code:      code,
		ProductID: f.draft.Items[0].ProductID,
		Subtotal:  f.draft.Totals.Subtotal,
	}
	f.mu.Unlock()

	coupon, err := f.backends.Checkout.VerifyCoupon(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, concernCoupon)
	if err != nil {
		f.record(ctx, flowlog.StatusStepRejected, err.Error())
		return err
	}
	if f.step != StepApplyCoupon {
		return ErrWrongStep
	}
	// The cart may have been swapped behind our back via a concurrent
	// Back+SetItems; the discount was granted against a subtotal that no
	// longer exists.
	if !sameItems(f.draft.Items, snapshot) {
		return ErrCartChanged
	}
	f.draft.Coupon = coupon
	f.draft.recompute()
	f.record(ctx, flowlog.StatusCouponApplied, coupon.Code)
	slog.InfoContext(ctx, "coupon applied",
		"draft_id", f.draft.ID, "code", coupon.Code, "discount", coupon.DiscountAmount)
	return nil
}

// Advance moves the flow forward by one step, performing whatever backend
// call the transition requires.
//
// On the payment step with the online option, Advance does not transition
// locally: it initiates the payment and returns the URL of the externally
// hosted payment page. The summary step is only reached once that external
// flow calls CompletePaymentReturn.
func (f *Flow) Advance(ctx context.Context) (redirectURL string, err error) {
	f.mu.Lock()
	if f.submitted != nil {
		f.mu.Unlock()
		return "", ErrCompleted
	}

	switch f.step {
	case StepSelectProducts:
		defer f.mu.Unlock()
		if len(f.draft.Items) == 0 {
			return "", ErrEmptyCart
		}
		f.advanceLocked(ctx)
		return "", nil

	case StepSelectAddress:
		return "", f.validateAddress(ctx)

	case StepApplyCoupon:
		// Coupons are optional; the transition is unconditional.
		defer f.mu.Unlock()
		f.advanceLocked(ctx)
		return "", nil

	case StepChoosePayment:
		switch f.draft.Payment {
		case entity.PaymentUnset:
			f.mu.Unlock()
			return "", ErrNoPaymentOption
		case entity.PaymentCashOnDelivery:
			defer f.mu.Unlock()
			f.advanceLocked(ctx)
			return "", nil
		default:
			return f.initiatePayment(ctx)
		}

	default:
		f.mu.Unlock()
		return "", ErrWrongStep
	}
}

// Back moves one step backward. Always permitted (except at the first
// step) and never clears already-entered state, so earlier screens
// re-display what the customer chose.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	if f.step == StepSelectProducts {
		return ErrAtFirstStep
	}
	if f.step == StepChoosePayment {
		f.paymentPending = false
	}
	f.step--
	f.record(ctx, flowlog.StatusStepDone, "back")
	return nil
}

// CompletePaymentReturn is called when the external payment page redirects
// back after a successful online payment. It performs the deferred jump to
// the summary step.
func (f *Flow) CompletePaymentReturn(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	if f.step != StepChoosePayment || !f.paymentPending {
		return ErrWrongStep
	}
	f.paymentPending = false
	f.step = StepSummary
	f.record(ctx, flowlog.StatusStepDone, "payment returned")
	return nil
}

// Abandon records that the customer walked away from the draft. The step in
// the log entry is where the funnel lost them. Dropping the flow from the
// store is the caller's job; a submitted flow is not abandonable.
func (f *Flow) Abandon(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted != nil {
		return ErrCompleted
	}
	f.record(ctx, flowlog.StatusAbandoned, "")
	return nil
}

// Submit assembles the order from the draft and posts it. On success the
// flow is finished and the persisted order is returned; on failure the
// draft is preserved so the customer can retry or navigate backward.
func (f *Flow) Submit(ctx context.Context) (*entity.Order, error) {
	f.mu.Lock()
	if f.submitted != nil {
		f.mu.Unlock()
		return nil, ErrCompleted
	}
	if f.step != StepSummary {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	// Validation errors are caught before any network call.
	if len(f.draft.Items) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if f.draft.Address.ID == "" {
		f.mu.Unlock()
		return nil, ErrNoAddress
	}
	if f.draft.Payment == entity.PaymentUnset {
		f.mu.Unlock()
		return nil, ErrNoPaymentOption
	}
	if f.inflight[concernSubmit] {
		f.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	f.inflight[concernSubmit] = true
	d := f.draft.clone()
	f.mu.Unlock()

	order, err := f.backends.Orders.Create(ctx, ports.CreateOrderRequest{
		UserID:        d.UserID,
		Items:         d.Items,
		Address:       d.Address,
		Coupon:        d.Coupon,
		Totals:        d.Totals,
		PaymentMethod: d.Payment,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, concernSubmit)
	if err != nil {
		f.record(ctx, flowlog.StatusFailed, err.Error())
		slog.ErrorContext(ctx, "order submission failed", "draft_id", f.draft.ID, "error", err)
		return nil, err
	}
	f.submitted = order
	f.record(ctx, flowlog.StatusSubmitted, order.ID)
	slog.InfoContext(ctx, "order submitted",
		"draft_id", f.draft.ID, "order_id", order.ID, "total", order.Totals.Total)
	return order, nil
}

// validateAddress runs the 2->3 transition: an asynchronous deliverability
// check keyed by the selected address ID. Called with f.mu held; releases
// it before the backend call and re-acquires to commit.
func (f *Flow) validateAddress(ctx context.Context) error {
	if f.draft.Address.ID == "" {
		f.mu.Unlock()
		return ErrNoAddress
	}
	// A previous success for the same address still stands.
	if f.validatedAddr == f.draft.Address.ID {
		defer f.mu.Unlock()
		f.advanceLocked(ctx)
		return nil
	}
	if f.inflight[concernAddress] {
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	f.inflight[concernAddress] = true
	req := ports.ValidateAddressRequest{
		UserID:    f.draft.UserID,
		AddressID: f.draft.Address.ID,
	}
	f.mu.Unlock()

	err := f.backends.Checkout.ValidateAddress(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, concernAddress)
	if err != nil {
		f.record(ctx, flowlog.StatusStepRejected, err.Error())
		return err
	}
	f.validatedAddr = req.AddressID
	// Commit the transition only if the selection didn't change while the
	// validation was in flight.
	if f.draft.Address.ID != req.AddressID || f.step != StepSelectAddress {
		return nil
	}
	f.advanceLocked(ctx)
	return nil
}

// initiatePayment runs the online branch of the 4->5 transition. Called
// with f.mu held; releases it around the backend call.
func (f *Flow) initiatePayment(ctx context.Context) (string, error) {
	if f.paymentPending {
		f.mu.Unlock()
		return "", ErrPaymentPending
	}
	if f.inflight[concernPayment] {
		f.mu.Unlock()
		return "", ErrRequestInFlight
	}
	f.inflight[concernPayment] = true
	req := ports.InitiatePaymentRequest{
		DraftID: f.draft.ID,
		UserID:  f.draft.UserID,
		Amount:  f.draft.Totals.Total,
	}
	f.mu.Unlock()

	redirectURL, err := f.backends.Payment.Initiate(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, concernPayment)
	if err != nil {
		f.record(ctx, flowlog.StatusStepRejected, err.Error())
		return "", err
	}
	if f.step != StepChoosePayment || f.draft.Payment != entity.PaymentOnline {
		// The customer navigated away while the initiation was in flight;
		// drop the handoff rather than yanking them to a payment page.
		return "", ErrWrongStep
	}
	f.paymentPending = true
	f.record(ctx, flowlog.StatusPaymentInitiated, redirectURL)
	return redirectURL, nil
}

// advanceLocked commits a forward transition. Caller holds f.mu.
func (f *Flow) advanceLocked(ctx context.Context) {
	f.step++
	f.record(ctx, flowlog.StatusStepDone, "")
}

// record appends a flow log entry. Log failures are swallowed: the audit
// trail must never break the checkout itself.
func (f *Flow) record(ctx context.Context, status flowlog.Status, detail string) {
	if f.log == nil {
		return
	}
	entry := flowlog.NewEntry(ctx, f.draft.ID, status, f.step.String(), detail)
	if err := f.log.Save(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "flow log write failed", "draft_id", f.draft.ID, "error", err)
	}
}
