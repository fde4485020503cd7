package domain

// StockItem is one product line on the inventory wire.
type StockItem struct {
	ProductID string
	Quantity  int32
}

// Reserve asks the stock store to hold Items for OrderID.
type Reserve struct {
	OrderID    string
	CustomerID string
	Items      []StockItem
	RequestID  string
}

type ReserveResult struct {
	Success bool
	Message string
}
