package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/bakery-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"nombre" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"telefono"`
	Address  string `json:"direccion"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginMeta carries request details recorded in the login log.
type LoginMeta struct {
	IP        string
	UserAgent string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"usuario"`
}

type AdminAuthResponse struct {
	Token string        `json:"token"`
	Admin AdminResponse `json:"admin"`
}

// --- Users ---

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"nombre"`
	Email     string    `json:"email"`
	Phone     string    `json:"telefono"`
	Address   string    `json:"direccion"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	Name    *string `json:"nombre"`
	Phone   *string `json:"telefono"`
	Address *string `json:"direccion"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"password_actual" binding:"required"`
	NewPassword     string `json:"password_nuevo" binding:"required,min=8"`
}

type ListUsersRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
}

type UserListResponse struct {
	Users []UserResponse `json:"usuarios"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type SetActiveRequest struct {
	Active *bool `json:"activo" binding:"required"`
}

// --- Admins ---

type CreateAdminRequest struct {
	Name     string `json:"nombre" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"rol" binding:"omitempty,oneof=admin superadmin"`
}

type AdminResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"nombre"`
	Email     string    `json:"email"`
	Role      string    `json:"rol"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Categories ---

// CategoryForm is bound from multipart form data; the image travels separately.
type CategoryForm struct {
	Name        string `form:"nombre"`
	Description string `form:"descripcion"`
	Active      string `form:"activo"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	Image       string    `json:"imagen"`
	Active      bool      `json:"activo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Products ---

// ProductForm keeps every field as a string so the service can normalise and
// report field-level messages instead of binding errors.
type ProductForm struct {
	Name        string `form:"nombre"`
	Description string `form:"descripcion"`
	Price       string `form:"precio"`
	Stock       string `form:"stock"`
	CategoryID  string `form:"categoria_id"`
	Featured    string `form:"destacado"`
	Active      string `form:"activo"`
}

type ListProductsRequest struct {
	Page       int    `form:"page,default=1" binding:"min=1"`
	Limit      int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search     string `form:"search"`
	CategoryID string `form:"categoria_id"`
	Featured   *bool  `form:"destacado"`
	Sort       string `form:"sort,default=created_at" binding:"oneof=nombre precio created_at"`
	Order      string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	CategoryID  uuid.UUID       `json:"categoria_id"`
	Image       string          `json:"imagen"`
	Featured    bool            `json:"destacado"`
	Active      bool            `json:"activo"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"productos"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Orders ---

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"producto_id" binding:"required"`
	Quantity  int       `json:"cantidad" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Lines           []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryDate    time.Time          `json:"fecha_entrega" binding:"required"`
	DeliveryAddress string             `json:"direccion_entrega" binding:"required"`
	Phone           string             `json:"telefono" binding:"required"`
	Notes           string             `json:"notas"`
	PaymentMethod   string             `json:"metodo_pago" binding:"omitempty,oneof=efectivo tarjeta yape plin"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"estado" binding:"required"`
}

type ListOrdersRequest struct {
	Page   int               `form:"page,default=1" binding:"min=1"`
	Limit  int               `form:"limit,default=20" binding:"min=1,max=100"`
	Status model.OrderStatus `form:"estado"`
	From   string            `form:"desde"`
	To     string            `form:"hasta"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"usuario_id"`
	Status          model.OrderStatus   `json:"estado"`
	Total           decimal.Decimal     `json:"total"`
	DeliveryDate    time.Time           `json:"fecha_entrega"`
	DeliveryAddress string              `json:"direccion_entrega"`
	Phone           string              `json:"telefono"`
	Notes           string              `json:"notas"`
	PaymentMethod   string              `json:"metodo_pago"`
	Lines           []OrderLineResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"producto_id"`
	ProductName string          `json:"producto_nombre"`
	Quantity    int             `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"pedidos"`
	Total  int             `json:"total"`
	Page   int             `json:"page,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// --- Invoices ---

type EmitInvoiceRequest struct {
	OrderID        uuid.UUID `json:"pedido_id" binding:"required"`
	InvoiceType    string    `json:"comprobante_tipo" binding:"required"`
	DocumentType   string    `json:"tipo_documento" binding:"required"`
	DocumentNumber string    `json:"numero_documento" binding:"required"`
}

// --- Reports ---

type ReportRangeRequest struct {
	From  string `form:"desde" binding:"required"`
	To    string `form:"hasta" binding:"required"`
	Group string `form:"agrupar,default=day" binding:"oneof=day week month"`
	Limit int    `form:"limit,default=10" binding:"min=1,max=100"`
}
