package domain

type OrderConfirmed struct {
	OrderID    string
	CartID     string
	Reference  string
	TotalCents int64
}
