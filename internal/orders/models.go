package orders

import (
	"time"

	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type Order struct {
	ID              string
	UserID          string
	Status          Status // see status.go
	TotalCents      int64
	ShippingAddress wire.Doc
	BillingAddress  wire.Doc
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Metadata        wire.Doc
}

// Item is one order line. Lines are written once and never updated.
type Item struct {
	ID             string
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
	CreatedAt      time.Time
}

func New(userID string) *Order {
	now := wire.Now()
	return &Order{
		ID:              wire.NewID(),
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: wire.Doc{},
		BillingAddress:  wire.Doc{},
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Metadata:        wire.Doc{},
	}
}

// NewItem prices the line at unit × quantity.
func NewItem(orderID, productID string, quantity int, unitPriceCents int64) *Item {
	return &Item{
		ID:             wire.NewID(),
		OrderID:        orderID,
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
		TotalCents:     unitPriceCents * int64(quantity),
		CreatedAt:      wire.Now(),
	}
}

func (o *Order) ToMap() map[string]any {
	return map[string]any{
		"order_id":         o.ID,
		"user_id":          o.UserID,
		"status":           string(o.Status),
		"total_amount":     wire.FormatMoney(o.TotalCents),
		"shipping_address": o.ShippingAddress,
		"billing_address":  o.BillingAddress,
		"payment_method":   o.PaymentMethod,
		"payment_status":   string(o.PaymentStatus),
		"created_at":       wire.FormatTime(o.CreatedAt),
		"updated_at":       wire.FormatTime(o.UpdatedAt),
		"metadata":         o.Metadata,
	}
}

func FromMap(m map[string]any) (*Order, error) {
	f := wire.Read(m)
	total, _ := f.Money("total_amount")
	o := &Order{
		ID:              f.String("order_id"),
		UserID:          f.String("user_id"),
		Status:          Status(f.String("status")),
		TotalCents:      total,
		ShippingAddress: f.Doc("shipping_address"),
		BillingAddress:  f.Doc("billing_address"),
		PaymentMethod:   f.String("payment_method"),
		PaymentStatus:   PaymentStatus(f.String("payment_status")),
		CreatedAt:       f.Time("created_at"),
		UpdatedAt:       f.Time("updated_at"),
		Metadata:        f.Doc("metadata"),
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	if o.ID == "" {
		o.ID = wire.NewID()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	now := wire.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	return o, nil
}

func (it *Item) ToMap() map[string]any {
	return map[string]any{
		"item_id":     it.ID,
		"order_id":    it.OrderID,
		"product_id":  it.ProductID,
		"quantity":    it.Quantity,
		"unit_price":  wire.FormatMoney(it.UnitPriceCents),
		"total_price": wire.FormatMoney(it.TotalCents),
		"created_at":  wire.FormatTime(it.CreatedAt),
	}
}

// ItemFromMap keeps an explicit total_price; otherwise the total is
// unit_price × quantity.
func ItemFromMap(m map[string]any) (*Item, error) {
	f := wire.Read(m)
	unit, _ := f.Money("unit_price")
	it := &Item{
		ID:             f.String("item_id"),
		OrderID:        f.String("order_id"),
		ProductID:      f.String("product_id"),
		Quantity:       f.Int("quantity", 1),
		UnitPriceCents: unit,
		CreatedAt:      f.Time("created_at"),
	}
	total, ok := f.Money("total_price")
	if err := f.Err(); err != nil {
		return nil, err
	}
	if !ok {
		total = unit * int64(it.Quantity)
	}
	it.TotalCents = total
	if it.ID == "" {
		it.ID = wire.NewID()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = wire.Now()
	}
	return it, nil
}
