package model

import "time"

// Заказы (владелец - внешний сервис заказов)

type Order struct {
	ID              string          `json:"id"`
	OrderStatus     string          `json:"orderStatus"`
	PaymentStatus   string          `json:"paymentStatus"`
	PaymentTracking PaymentTracking `json:"paymentTracking"`
	FinalTotal      int64           `json:"finalTotal"`
	CustomerInfo    CustomerInfo    `json:"customerInfo"`
}

type PaymentTracking struct {
	DepositConfirmed     bool `json:"depositConfirmed"`
	FullPaymentConfirmed bool `json:"fullPaymentConfirmed"`
}

type CustomerInfo struct {
	FullName string `json:"fullName"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

type OrderFilter struct {
	Status string
	Limit  int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type OrderList struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Доли оплаты. Остаток считается вычитанием, поэтому задаток + остаток == итог.

func DepositAmount(total int64) int64 {
	return total * 30 / 100
}

func RemainingAmount(total int64) int64 {
	return total - DepositAmount(total)
}

// Уведомления

type Notification struct {
	ID           string    `json:"id"`
	Type         Kind      `json:"type"`
	OrderID      string    `json:"orderId,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	Amount       *int64    `json:"amount,omitempty"`
	Message      string    `json:"message"`
	Title        string    `json:"title"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	Timestamp    time.Time `json:"timestamp"`
	Read         bool      `json:"read"`
}
