package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
)

func TestSetItemsValidation(t *testing.T) {
	d := &Draft{DeliveryFee: 30}

	err := d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 10, Quantity: 0}})
	assert.ErrorIs(t, err, ErrQuantity)

	err = d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: -1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrNegativePrice)

	err = d.setItems([]entity.OrderItem{
		{ProductID: "p1", UnitPrice: 10, Quantity: 1},
		{ProductID: "p1", UnitPrice: 12, Quantity: 2},
	})
	assert.ErrorIs(t, err, ErrDuplicateProduct)
}

func TestSubtotalIsExactSum(t *testing.T) {
	cases := []struct {
		name  string
		items []entity.OrderItem
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []entity.OrderItem{{ProductID: "a", UnitPrice: 99.99, Quantity: 3}}, 299.97},
		{"mixed", []entity.OrderItem{
			{ProductID: "a", UnitPrice: 100, Quantity: 2},
			{ProductID: "b", UnitPrice: 0, Quantity: 5},
			{ProductID: "c", UnitPrice: 12.5, Quantity: 4},
		}, 250},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Draft{DeliveryFee: 30}
			require.NoError(t, d.setItems(tc.items))
			assert.InDelta(t, tc.want, d.Totals.Subtotal, 1e-9)
		})
	}
}

func TestTaxOnlyForOnlinePayment(t *testing.T) {
	d := &Draft{DeliveryFee: 30}
	require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 100, Quantity: 2}}))

	for _, method := range []entity.PaymentMethod{entity.PaymentUnset, entity.PaymentCashOnDelivery} {
		d.Payment = method
		d.recompute()
		assert.Zero(t, d.Totals.Tax, "tax must be zero for %q", method)
	}

	d.Payment = entity.PaymentOnline
	d.recompute()
	assert.InDelta(t, 10, d.Totals.Tax, 1e-9) // 5% of 200
}

func TestTotalScenarios(t *testing.T) {
	// products = [{price:100, qty:2}], delivery=30.
	newDraft := func(t *testing.T) *Draft {
		d := &Draft{DeliveryFee: 30}
		require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 100, Quantity: 2}}))
		return d
	}

	t.Run("cash on delivery", func(t *testing.T) {
		d := newDraft(t)
		d.Payment = entity.PaymentCashOnDelivery
		d.recompute()
		assert.InDelta(t, 200, d.Totals.Subtotal, 1e-9)
		assert.Zero(t, d.Totals.Tax)
		assert.InDelta(t, 230, d.Totals.Total, 1e-9)
	})

	t.Run("online adds tax", func(t *testing.T) {
		d := newDraft(t)
		d.Payment = entity.PaymentOnline
		d.recompute()
		assert.InDelta(t, 10, d.Totals.Tax, 1e-9)
		assert.InDelta(t, 240, d.Totals.Total, 1e-9)
	})

	t.Run("coupon on cod cart", func(t *testing.T) {
		d := newDraft(t)
		d.Payment = entity.PaymentCashOnDelivery
		d.Coupon = &entity.Coupon{Code: "SAVE50", DiscountAmount: 50}
		d.recompute()
		assert.InDelta(t, 180, d.Totals.Total, 1e-9)
	})
}

func TestTotalNeverNegative(t *testing.T) {
	d := &Draft{DeliveryFee: 30}
	require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 10, Quantity: 1}}))
	d.Coupon = &entity.Coupon{Code: "HUGE", DiscountAmount: 10_000}
	d.recompute()
	assert.Zero(t, d.Totals.Total)
	assert.InDelta(t, 10_000, d.Totals.Discount, 1e-9)
}

func TestItemChangeClearsCoupon(t *testing.T) {
	d := &Draft{DeliveryFee: 30}
	require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 100, Quantity: 2}}))
	d.Coupon = &entity.Coupon{Code: "SAVE50", DiscountAmount: 50}
	d.recompute()

	// Re-applying the identical selection keeps the verified coupon.
	require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 100, Quantity: 2}}))
	assert.NotNil(t, d.Coupon)

	// Any composition change invalidates the prior verification.
	require.NoError(t, d.setItems([]entity.OrderItem{{ProductID: "p1", UnitPrice: 100, Quantity: 3}}))
	assert.Nil(t, d.Coupon)
	assert.Zero(t, d.Totals.Discount)
}

func TestEmptyCartHasNoDeliveryFee(t *testing.T) {
	d := &Draft{DeliveryFee: 30}
	require.NoError(t, d.setItems(nil))
	assert.Zero(t, d.Totals.Total)
}
