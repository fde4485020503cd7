package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept on every amount.
const MoneyScale = 2

type Customer struct {
	CustomerID string `json:"customerId"`
	Prename    string `json:"prename,omitempty"`
	Name       string `json:"name,omitempty"`
}

// RecipientName joins prename and name, falling back to the customer id.
func (c *Customer) RecipientName() string {
	if c == nil {
		return "unknown"
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{c.Prename, c.Name} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if c.CustomerID != "" {
		return c.CustomerID
	}
	return "unknown"
}

type OrderItem struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// Subtotal is price × quantity, unrounded. A missing price counts as zero.
func (i OrderItem) Subtotal() decimal.Decimal {
	if i.Price == nil {
		return decimal.Zero
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Order is treated as a value: mutations go through With* copies so a stored
// order is never changed behind the registry's back.
type Order struct {
	OrderID         string           `json:"orderId,omitempty"`
	Customer        *Customer        `json:"customer"`
	Items           []OrderItem      `json:"items"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	Status          Status           `json:"status,omitempty"`
}

// Clone returns a deep copy.
func (o Order) Clone() Order {
	out := o
	if o.Customer != nil {
		c := *o.Customer
		out.Customer = &c
	}
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		for i, it := range o.Items {
			if it.Price != nil {
				p := *it.Price
				it.Price = &p
			}
			out.Items[i] = it
		}
	}
	if o.TotalAmount != nil {
		t := *o.TotalAmount
		out.TotalAmount = &t
	}
	if o.ShippingAddress != nil {
		a := *o.ShippingAddress
		out.ShippingAddress = &a
	}
	return out
}

func (o Order) WithOrderID(id string) Order {
	out := o.Clone()
	out.OrderID = id
	return out
}

func (o Order) WithStatus(s Status) Order {
	out := o.Clone()
	out.Status = s
	return out
}

// CalculatedTotal sums price × quantity over all items, rounded half-up to
// two decimals.
func (o Order) CalculatedTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	return RoundMoney(sum)
}

// RoundMoney rounds half away from zero, which equals half-up for the
// non-negative amounts orders carry.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// MarshalJSON writes amounts as JSON numbers with a fixed scale of two.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	type wire struct {
		ProductID string       `json:"productId"`
		Quantity  int          `json:"quantity"`
		Price     *json.Number `json:"price"`
	}
	return json.Marshal(wire{ProductID: i.ProductID, Quantity: i.Quantity, Price: fixed(i.Price)})
}

func (o Order) MarshalJSON() ([]byte, error) {
	type wire struct {
		OrderID         string           `json:"orderId,omitempty"`
		Customer        *Customer        `json:"customer"`
		Items           []OrderItem      `json:"items"`
		TotalAmount     *json.Number     `json:"totalAmount"`
		ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
		Status          Status           `json:"status,omitempty"`
	}
	return json.Marshal(wire{
		OrderID:         o.OrderID,
		Customer:        o.Customer,
		Items:           o.Items,
		TotalAmount:     fixed(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status,
	})
}

func fixed(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.StringFixed(MoneyScale))
	return &n
}
