package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a placed order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusShipped:    "Shipped",
	StatusDelivered:  "Delivered",
	StatusCancelled:  "Cancelled",
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the display label, falling back to the raw value for unknown statuses
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseOrderStatus converts a raw value into a known status
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", value)
	}
	return status, nil
}

// OrderProduct is the product data captured in an order
type OrderProduct struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

// OrderItem is an immutable line of a placed order
type OrderItem struct {
	Product  OrderProduct `json:"product"`
	Quantity int          `json:"quantity"`
	Size     float64      `json:"size"`
	Color    string       `json:"color"`
}

// ShippingAddress is the delivery address captured in an order
type ShippingAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// Order represents a placed order as stored by the order store
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	Status          OrderStatus     `json:"status" db:"status"`
	Items           []OrderItem     `json:"items" db:"items"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping" db:"shipping"`
	Tax             decimal.Decimal `json:"tax" db:"tax"`
	Total           decimal.Decimal `json:"total" db:"total"`
	ShippingAddress ShippingAddress `json:"shipping_address" db:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// SnapshotItems copies cart lines into order lines that no longer reference catalog data
func SnapshotItems(items []CartItem) []OrderItem {
	snapshot := make([]OrderItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, OrderItem{
			Product: OrderProduct{
				ID:     item.Product.ID,
				Name:   item.Product.Name,
				Price:  item.Product.Price,
				Images: slices.Clone(item.Product.Images),
			},
			Quantity: item.Quantity,
			Size:     item.Size,
			Color:    item.Color,
		})
	}
	return snapshot
}

// OrderConfirmation is the payload handed to the order confirmation email function
type OrderConfirmation struct {
	Email           string          `json:"email"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerName    string          `json:"customerName"`
	Items           []OrderItem     `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	Shipping        float64         `json:"shipping"`
	Tax             float64         `json:"tax"`
	Total           float64         `json:"total"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}
