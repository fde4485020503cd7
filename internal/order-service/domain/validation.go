package domain

import (
	"fmt"
	"math"
	"strings"
)

// Normalize trims every textual field and returns a fresh canonical copy.
// The input is left untouched.
func Normalize(in Order) Order {
	out := in.Clone()
	out.OrderID = strings.TrimSpace(out.OrderID)
	if out.Customer != nil {
		out.Customer.CustomerID = strings.TrimSpace(out.Customer.CustomerID)
		out.Customer.Prename = strings.TrimSpace(out.Customer.Prename)
		out.Customer.Name = strings.TrimSpace(out.Customer.Name)
	}
	for i := range out.Items {
		out.Items[i].ProductID = strings.TrimSpace(out.Items[i].ProductID)
	}
	if out.ShippingAddress != nil {
		a := out.ShippingAddress
		a.Street = strings.TrimSpace(a.Street)
		a.City = strings.TrimSpace(a.City)
		a.ZipCode = strings.TrimSpace(a.ZipCode)
		a.Country = strings.TrimSpace(a.Country)
	}
	if out.Status == "" {
		out.Status = StatusCreated
	}
	return out
}

// Validate checks the structure of an order and reconciles its total.
// Both sides of the total comparison are rounded half-up to two decimals
// independently and must then be exactly equal.
func Validate(o Order) error {
	if o.Customer == nil || strings.TrimSpace(o.Customer.CustomerID) == "" {
		return &ValidationError{Message: "customerId must not be blank"}
	}
	if len(o.Items) == 0 {
		return &ValidationError{Message: "order needs at least one item"}
	}
	for _, it := range o.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return &ValidationError{Message: "productId must not be blank"}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Message: "quantity must be > 0"}
		}
		// stock quantities travel as int32
		if it.Quantity > math.MaxInt32 {
			return &ValidationError{Message: fmt.Sprintf("quantity must be <= %d", math.MaxInt32)}
		}
		if it.Price == nil {
			return &ValidationError{Message: "price required"}
		}
	}
	if o.TotalAmount == nil {
		return &ValidationError{Message: "totalAmount must be provided and equal to the sum of items"}
	}

	calculated := o.CalculatedTotal()
	provided := RoundMoney(*o.TotalAmount)
	if !provided.Equal(calculated) {
		return &ValidationError{Message: fmt.Sprintf("totalAmount mismatch: provided=%s, calculated=%s",
			provided.StringFixed(MoneyScale), calculated.StringFixed(MoneyScale))}
	}
	return nil
}
