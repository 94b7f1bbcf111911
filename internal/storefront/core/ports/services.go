// Package ports declares the interfaces through which the storefront talks
// to the remote commerce backend. The checkout flow and the HTTP handlers
// depend on these abstractions, not on the REST adapters directly, so tests
// can substitute in-memory fakes.
package ports

import (
	"context"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
)

// AccountService fetches the authenticated customer's profile, including
// wishlist and address book.
type AccountService interface {
	Profile(ctx context.Context, userID string) (*entity.User, error)
}

// CatalogService fetches a single product, used when a customer arrives via
// a direct product link.
type CatalogService interface {
	Product(ctx context.Context, productID string) (*entity.Product, error)
}

// ValidateAddressRequest asks the backend whether an address is serviceable
// for delivery before checkout may proceed past address selection.
type ValidateAddressRequest struct {
	UserID    string
	AddressID string
}

// VerifyCouponRequest checks a coupon code against the first selected
// product and the current subtotal.
type VerifyCouponRequest struct {
	Code      string
	ProductID string
	Subtotal  float64
}

// CheckoutService covers the backend calls issued while a draft is being
// assembled: address validation and coupon verification.
type CheckoutService interface {
	// ValidateAddress returns nil when the address is deliverable. A
	// business rejection is returned as an error carrying the backend's
	// message verbatim.
	ValidateAddress(ctx context.Context, req ValidateAddressRequest) error

	// VerifyCoupon returns the discount grant on success.
	VerifyCoupon(ctx context.Context, req VerifyCouponRequest) (*entity.Coupon, error)
}

// InitiatePaymentRequest starts an online payment for the amount due.
type InitiatePaymentRequest struct {
	DraftID string
	UserID  string
	Amount  float64
}

// PaymentService begins an online payment and hands back the URL of the
// externally hosted payment page.
type PaymentService interface {
	Initiate(ctx context.Context, req InitiatePaymentRequest) (redirectURL string, err error)
}

// CreateOrderRequest is the order shape assembled from the draft at
// submission time.
type CreateOrderRequest struct {
	UserID        string
	Items         []entity.OrderItem
	Address       entity.Address
	Coupon        *entity.Coupon
	Totals        entity.Totals
	PaymentMethod entity.PaymentMethod
}

// OrderService creates and tracks persisted orders. Cancel expresses the
// customer's one mutation right: a status transition to CANCELLED inside
// the cancellation window.
type OrderService interface {
	Create(ctx context.Context, req CreateOrderRequest) (*entity.Order, error)
	Get(ctx context.Context, id string) (*entity.Order, error)
	Cancel(ctx context.Context, id string) (*entity.Order, error)
}
