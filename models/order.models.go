package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Transitions are admin-driven and unconditional: only enum
// membership is checked, there is no legality guard between states.
const (
	StatusPending          = "pending"
	StatusConfirmed        = "confirmed"
	StatusPreparing        = "preparing"
	StatusReadyForDelivery = "ready-for-delivery"
	StatusOutForDelivery   = "out-for-delivery"
	StatusDelivered        = "delivered"
	StatusCancelled        = "cancelled"
	StatusRefunded         = "refunded"
)

// Payment statuses.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Delivery schedules for milk products.
const (
	ScheduleMorning = "morning"
	ScheduleEvening = "evening"
	ScheduleBoth    = "both"
)

// AmountEpsilon is the tolerance used when reconciling a client-submitted
// total against the server-computed one. It absorbs floating-point drift
// and is not configurable.
const AmountEpsilon = 0.01

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReadyForDelivery,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// ValidSchedule reports whether s is a known delivery schedule.
func ValidSchedule(s string) bool {
	switch s {
	case ScheduleMorning, ScheduleEvening, ScheduleBoth:
		return true
	}
	return false
}

// ScheduleAllowed reports whether the given delivery schedule may be set on
// a product of the given category. An empty schedule is always allowed;
// only milk products carry a schedule.
func ScheduleAllowed(category, schedule string) bool {
	if schedule == "" {
		return true
	}
	return category == CategoryMilk && ValidSchedule(schedule)
}

// AmountMatches reports whether two currency amounts are equal within
// AmountEpsilon.
func AmountMatches(a, b float64) bool {
	return math.Abs(a-b) <= AmountEpsilon
}

// Round2 rounds a currency amount to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderItem is one line of an order. Price and name are snapshots taken
// from the live product at creation time.
type OrderItem struct {
	ProductID        primitive.ObjectID `bson:"product_id" json:"productId"`
	ProductName      string             `bson:"product_name" json:"productName"`
	Quantity         int                `bson:"quantity" json:"quantity"`
	SelectedSize     string             `bson:"selected_size" json:"selectedSize"` // e.g. "1 liter", "500g"
	Price            float64            `bson:"price" json:"price"`
	DeliverySchedule string             `bson:"delivery_schedule,omitempty" json:"deliverySchedule,omitempty"` // milk only
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// StatusChange is one entry in an order's status history.
type StatusChange struct {
	Status    string             `bson:"status" json:"status"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy primitive.ObjectID `bson:"updated_by,omitempty" json:"updatedBy,omitempty"`
}

// Order is a placed order. The shipping address is a snapshot of the user's
// address at creation time, so later address edits do not rewrite history.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderNumber     string             `bson:"order_number" json:"orderNumber"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress Address            `bson:"shipping_address" json:"shippingAddress"`

	// TotalAmount is the reconciled sum of item price x quantity.
	TotalAmount float64 `bson:"total_amount" json:"totalAmount"`

	// Informational pricing breakdown, computed server-side.
	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
	Tax         float64 `bson:"tax" json:"tax"`
	DeliveryFee float64 `bson:"delivery_fee" json:"deliveryFee"`
	Discount    float64 `bson:"discount" json:"discount"`
	GrandTotal  float64 `bson:"grand_total" json:"grandTotal"`

	Status        string         `bson:"status" json:"status"`
	StatusHistory []StatusChange `bson:"status_history" json:"statusHistory"`

	PaymentStatus string `bson:"payment_status" json:"paymentStatus"`
	PaymentMethod string `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`

	DeliveryDate       *time.Time `bson:"delivery_date,omitempty" json:"deliveryDate,omitempty"`
	ActualDeliveryTime *time.Time `bson:"actual_delivery_time,omitempty" json:"actualDeliveryTime,omitempty"`
	Notes              string     `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewOrderNumber builds a human-readable order number, ORDyyyymmddNNNN.
func NewOrderNumber(now time.Time) string {
	suffix, err := generateCode(4)
	if err != nil {
		suffix = "0000"
	}
	return "ORD" + now.Format("20060102") + suffix
}

// ItemsSubtotal sums price x quantity over the order's items.
func (o *Order) ItemsSubtotal() float64 {
	sum := 0.0
	for _, item := range o.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return Round2(sum)
}

// CalculateTotals fills in the pricing breakdown from the items: 5% tax and
// a delivery fee of 50 below 500, 30 below 1000 and free above.
func (o *Order) CalculateTotals() {
	o.Subtotal = o.ItemsSubtotal()
	o.Tax = Round2(o.Subtotal * 0.05)
	switch {
	case o.Subtotal < 500:
		o.DeliveryFee = 50
	case o.Subtotal < 1000:
		o.DeliveryFee = 30
	default:
		o.DeliveryFee = 0
	}
	o.GrandTotal = Round2(o.Subtotal + o.Tax + o.DeliveryFee - o.Discount)
}

// ApplyStatus sets the order status and appends a status-history entry.
// The first transition into delivered stamps the actual delivery time.
func (o *Order) ApplyStatus(status, note string, updatedBy primitive.ObjectID, now time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    status,
		Timestamp: now,
		Note:      note,
		UpdatedBy: updatedBy,
	})
	if status == StatusDelivered && o.ActualDeliveryTime == nil {
		t := now
		o.ActualDeliveryTime = &t
	}
	o.UpdatedAt = now
}
