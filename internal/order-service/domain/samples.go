package domain

import "github.com/shopspring/decimal"

// SampleOrders returns the demo orders used to seed an empty registry.
func SampleOrders() []Order {
	return []Order{
		sample("ORD-1001", StatusPaid,
			&Customer{CustomerID: "CUST-1001", Prename: "Anna", Name: "Mueller"},
			&ShippingAddress{Street: "Hauptstrasse 12", City: "Stuttgart", ZipCode: "70173", Country: "DE"},
			item("PRD-101", 1, "1299.00"),
			item("PRD-205", 2, "199.50"),
		),
		sample("ORD-1002", StatusShipped,
			&Customer{CustomerID: "CUST-1002", Prename: "Bastian", Name: "Schmidt"},
			&ShippingAddress{Street: "Marktplatz 5", City: "Heidelberg", ZipCode: "69117", Country: "DE"},
			item("PRD-310", 6, "2.49"),
			item("PRD-311", 2, "4.90"),
			item("PRD-450", 1, "18.75"),
		),
		sample("ORD-1003", StatusCancelled,
			&Customer{CustomerID: "CUST-1003", Prename: "Carla", Name: "Neumann"},
			&ShippingAddress{Street: "Bahnhofstrasse 20", City: "Karlsruhe", ZipCode: "76133", Country: "DE"},
			item("PRD-808", 1, "89.95"),
		),
	}
}

func sample(id string, status Status, c *Customer, a *ShippingAddress, items ...OrderItem) Order {
	o := Order{OrderID: id, Customer: c, Items: items, ShippingAddress: a, Status: status}
	total := o.CalculatedTotal()
	o.TotalAmount = &total
	return o
}

func item(productID string, qty int, price string) OrderItem {
	p := decimal.RequireFromString(price)
	return OrderItem{ProductID: productID, Quantity: qty, Price: &p}
}
