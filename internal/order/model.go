package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// DefaultTaxRate is 10% VAT.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

type Order struct {
	ID             string
	CustomerID     string
	Items          []OrderItem
	TaxRate        decimal.Decimal
	TotalBeforeTax int64
	TotalAfterTax  int64
	Status         OrderStatus
	InvoiceNumber  *string // set when the payment settles
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int64
}

// Subtotal is quantity times unit price.
func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// ItemInput is a line item as received from the cart collaborator.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
