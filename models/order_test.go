package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAmountMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		server  float64
		claimed float64
		want    bool
	}{
		{name: "exact", server: 110.00, claimed: 110.00, want: true},
		{name: "within epsilon", server: 110.00, claimed: 110.01, want: true},
		{name: "at epsilon", server: 110.00, claimed: 109.99, want: true},
		{name: "just over", server: 110.00, claimed: 110.02, want: false},
		{name: "way off", server: 110.00, claimed: 111.50, want: false},
		{name: "float drift", server: 0.1 + 0.2, claimed: 0.3, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AmountMatches(tt.server, tt.claimed))
		})
	}
}

func TestItemsSubtotal(t *testing.T) {
	t.Parallel()

	order := Order{Items: []OrderItem{
		{Price: 55, Quantity: 2},
		{Price: 12.50, Quantity: 3},
	}}
	assert.Equal(t, 147.50, order.ItemsSubtotal())
}

func TestCalculateTotals_FeeTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subtotal float64
		wantFee  float64
	}{
		{name: "small order", subtotal: 100, wantFee: 50},
		{name: "just under first tier", subtotal: 499.99, wantFee: 50},
		{name: "first tier boundary", subtotal: 500, wantFee: 30},
		{name: "just under free tier", subtotal: 999.99, wantFee: 30},
		{name: "free delivery", subtotal: 1000, wantFee: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := Order{Items: []OrderItem{{Price: tt.subtotal, Quantity: 1}}}
			order.CalculateTotals()

			assert.Equal(t, tt.subtotal, order.Subtotal)
			assert.Equal(t, tt.wantFee, order.DeliveryFee)
			assert.Equal(t, Round2(tt.subtotal*0.05), order.Tax)
			assert.Equal(t, Round2(order.Subtotal+order.Tax+order.DeliveryFee), order.GrandTotal)
		})
	}
}

func TestCalculateTotals_Discount(t *testing.T) {
	t.Parallel()

	order := Order{
		Items:    []OrderItem{{Price: 600, Quantity: 1}},
		Discount: 100,
	}
	order.CalculateTotals()
	assert.Equal(t, 560.0, order.GrandTotal) // 600 + 30 tax + 30 fee - 100
}

func TestApplyStatus_AppendsHistory(t *testing.T) {
	t.Parallel()

	now := time.Now()
	admin := primitive.NewObjectID()
	order := Order{
		Status: StatusPending,
		StatusHistory: []StatusChange{
			{Status: StatusPending, Timestamp: now.Add(-time.Hour), Note: "Order placed"},
		},
	}

	order.ApplyStatus(StatusConfirmed, "looks good", admin, now)

	assert.Equal(t, StatusConfirmed, order.Status)
	require.Len(t, order.StatusHistory, 2)
	last := order.StatusHistory[1]
	assert.Equal(t, StatusConfirmed, last.Status)
	assert.Equal(t, "looks good", last.Note)
	assert.Equal(t, admin, last.UpdatedBy)
	assert.Nil(t, order.ActualDeliveryTime)
}

func TestApplyStatus_PendingStraightToDelivered(t *testing.T) {
	t.Parallel()

	// There is no transition guard: any status is reachable directly.
	now := time.Now()
	order := Order{Status: StatusPending}
	order.ApplyStatus(StatusDelivered, "", primitive.NewObjectID(), now)

	assert.Equal(t, StatusDelivered, order.Status)
	require.NotNil(t, order.ActualDeliveryTime)
	assert.Equal(t, now, *order.ActualDeliveryTime)
}

func TestApplyStatus_DeliveryTimeStampedOnce(t *testing.T) {
	t.Parallel()

	now := time.Now()
	admin := primitive.NewObjectID()
	order := Order{Status: StatusPending}

	order.ApplyStatus(StatusDelivered, "", admin, now)
	first := *order.ActualDeliveryTime

	order.ApplyStatus(StatusCancelled, "", admin, now.Add(time.Hour))
	order.ApplyStatus(StatusDelivered, "", admin, now.Add(2*time.Hour))

	assert.Equal(t, first, *order.ActualDeliveryTime, "only the first delivery is stamped")
	assert.Len(t, order.StatusHistory, 3)
}

func TestValidStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		StatusPending, StatusConfirmed, StatusPreparing, StatusReadyForDelivery,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("shipped"))
	assert.False(t, ValidStatus(""))
}

func TestScheduleAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		schedule string
		want     bool
	}{
		{name: "no schedule on meat", category: CategoryMeat, schedule: "", want: true},
		{name: "morning milk", category: CategoryMilk, schedule: ScheduleMorning, want: true},
		{name: "both milk", category: CategoryMilk, schedule: ScheduleBoth, want: true},
		{name: "schedule on meat", category: CategoryMeat, schedule: ScheduleMorning, want: false},
		{name: "schedule on oils", category: CategoryOrganicOils, schedule: ScheduleEvening, want: false},
		{name: "bogus schedule on milk", category: CategoryMilk, schedule: "noon", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ScheduleAllowed(tt.category, tt.schedule))
		})
	}
}

func TestNewOrderNumber_Format(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	number := NewOrderNumber(now)
	assert.Regexp(t, `^ORD20250314\d{4}$`, number)
}

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10.57, Round2(10.567))
	assert.Equal(t, 10.56, Round2(10.563))
	assert.Equal(t, 0.30, Round2(0.1+0.2))
}
