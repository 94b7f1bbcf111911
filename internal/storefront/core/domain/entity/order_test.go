package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellableAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status OrderStatus
		at     time.Time
		want   bool
	}{
		{"pending, fresh", StatusPending, created.Add(time.Hour), true},
		{"confirmed, fresh", StatusConfirmed, created.Add(time.Hour), true},
		{"exactly at the window edge", StatusPending, created.Add(CancellationWindow), true},
		{"just past the window", StatusPending, created.Add(CancellationWindow + time.Second), false},
		{"shipped is final", StatusShipped, created.Add(time.Hour), false},
		{"delivered is final", StatusDelivered, created.Add(time.Hour), false},
		{"already cancelled", StatusCancelled, created.Add(time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := &Order{Status: tc.status, CreatedAt: created}
			assert.Equal(t, tc.want, o.CancellableAt(tc.at))
		})
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	it := OrderItem{ProductID: "p1", UnitPrice: 12.5, Quantity: 4}
	assert.InDelta(t, 50, it.Subtotal(), 1e-9)
}

func TestAddressByID(t *testing.T) {
	u := &User{Addresses: []Address{{ID: "a1", City: "Pune"}, {ID: "a2", City: "Mumbai"}}}

	addr, ok := u.AddressByID("a2")
	assert.True(t, ok)
	assert.Equal(t, "Mumbai", addr.City)

	_, ok = u.AddressByID("missing")
	assert.False(t, ok)
}
