// Package checkout implements the storefront's checkout flow: the order
// draft being assembled, its derived monetary totals, and the five-step
// state machine that sequences the backend calls needed to turn a draft
// into a persisted order.
package checkout

import (
	"errors"
	"fmt"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
)

// TaxRate is applied to the subtotal for online payments only; cash on
// delivery is untaxed at checkout time.
const TaxRate = 0.05

var (
	ErrQuantity         = errors.New("checkout: item quantity must be at least 1")
	ErrNegativePrice    = errors.New("checkout: item unit price must not be negative")
	ErrDuplicateProduct = errors.New("checkout: product already selected")
)

// Draft is the transient, in-memory order being assembled across checkout
// steps. It is destroyed on submission; only the authenticated session
// outlives it.
type Draft struct {
	ID          string
	UserID      string
	Items       []entity.OrderItem
	Address     entity.Address // snapshot; zero value means unset
	Coupon      *entity.Coupon // set only after successful verification
	Payment     entity.PaymentMethod
	DeliveryFee float64
	Totals      entity.Totals // derived, never set directly
}

// setItems replaces the selected products, enforcing quantity >= 1 and
// uniqueness by product ID. A change to the item set clears any verified
// coupon: the prior verification was made against a subtotal that no longer
// exists.
func (d *Draft) setItems(items []entity.OrderItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: product %s", ErrQuantity, it.ProductID)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("%w: product %s", ErrNegativePrice, it.ProductID)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}

	if !sameItems(d.Items, items) {
		d.Items = append([]entity.OrderItem(nil), items...)
		d.Coupon = nil
	}
	d.recompute()
	return nil
}

// recompute re-derives the totals from the current draft state. Called after
// every mutation; nothing else writes d.Totals.
func (d *Draft) recompute() {
	var t entity.Totals
	for _, it := range d.Items {
		t.Subtotal += it.Subtotal()
	}
	if len(d.Items) > 0 {
		t.Delivery = d.DeliveryFee
	}
	if d.Payment == entity.PaymentOnline {
		t.Tax = TaxRate * t.Subtotal
	}
	if d.Coupon != nil {
		t.Discount = d.Coupon.DiscountAmount
	}
	// The discount may exceed everything else; the customer never owes a
	// negative amount.
	t.Total = t.Subtotal - t.Discount + t.Delivery + t.Tax
	if t.Total < 0 {
		t.Total = 0
	}
	d.Totals = t
}

// clone returns a deep copy safe to hand out while the flow keeps mutating
// the original.
func (d *Draft) clone() Draft {
	out := *d
	out.Items = append([]entity.OrderItem(nil), d.Items...)
	if d.Coupon != nil {
		c := *d.Coupon
		out.Coupon = &c
	}
	return out
}

func sameItems(a, b []entity.OrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
