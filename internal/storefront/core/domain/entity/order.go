package entity

import "time"

// OrderStatus is the backend-owned lifecycle state of a persisted order.
// The storefront never sets these directly; it only requests the
// PENDING/CONFIRMED -> CANCELLED transition within the cancellation window.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethod is how the customer chose to pay.
// The empty value means no choice has been made yet.
type PaymentMethod string

const (
	PaymentUnset          PaymentMethod = ""
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentOnline         PaymentMethod = "online"
)

// CancellationWindow is how long after creation the customer may still
// request cancellation of an order.
const CancellationWindow = 3 * 24 * time.Hour

type OrderItem struct {
	ProductID string
	UnitPrice float64
	Quantity  int
}

// Subtotal is the line total for this item.
func (i OrderItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Coupon is a verified discount grant returned by the backend.
// It is only ever constructed from a successful verification response.
type Coupon struct {
	Code           string
	DiscountAmount float64
}

// Totals is the monetary breakdown of a draft or persisted order.
// These values are always derived, never entered.
type Totals struct {
	Subtotal float64
	Tax      float64
	Delivery float64
	Discount float64
	Total    float64
}

// Order is the persisted order as the backend reports it. The address and
// coupon are snapshots taken at submission time; later edits to the user's
// address book do not affect them.
type Order struct {
	ID            string
	UserID        string
	Items         []OrderItem
	Address       Address
	Coupon        *Coupon
	Totals        Totals
	PaymentMethod PaymentMethod
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CancellableAt reports whether a cancellation request is still allowed at
// the given instant. Orders already shipped, delivered or cancelled are
// final regardless of age.
func (o *Order) CancellableAt(now time.Time) bool {
	switch o.Status {
	case StatusPending, StatusConfirmed:
	default:
		return false
	}
	return now.Sub(o.CreatedAt) <= CancellationWindow
}
