package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Phone     string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "superadmin"
)

type Admin struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	Image       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  uuid.UUID
	Image       string
	Featured    bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Total           decimal.Decimal
	Status          OrderStatus
	DeliveryDate    time.Time
	DeliveryAddress string
	Phone           string
	Notes           string
	PaymentMethod   string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	CategoryID  uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// LineTotal sums the subtotals of the given lines.
func LineTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

const (
	AccountKindUser  = "user"
	AccountKindAdmin = "admin"
)

type LoginLog struct {
	ID        uuid.UUID
	Kind      string
	AccountID *uuid.UUID
	Email     string
	Success   bool
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// OrderEvent is published whenever an order is created or changes status.
type OrderEvent struct {
	Type    string          `json:"type"`
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Status  OrderStatus     `json:"status"`
	Total   decimal.Decimal `json:"total"`
	At      time.Time       `json:"at"`
}

const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
)
