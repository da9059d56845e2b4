package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

const defaultPaymentMethod = "efectivo"

// EventPublisher delivers order events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	events      EventPublisher
	loc         *time.Location
	log         *slog.Logger
	now         func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	events EventPublisher,
	loc *time.Location,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		events:      events,
		loc:         loc,
		log:         log,
		now:         time.Now,
	}
}

func (s *OrderService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	today := truncateDay(s.now().In(s.loc))
	if truncateDay(req.DeliveryDate.In(s.loc)).Before(today) {
		return nil, invalid("La fecha de entrega no puede ser anterior a hoy")
	}

	quantities, ordered := mergeLines(req.Lines)
	lines := make([]model.OrderLine, 0, len(ordered))
	for _, productID := range ordered {
		qty := quantities[productID]
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil || !product.Active {
			return nil, invalid(fmt.Sprintf("El producto %s no está disponible", productID))
		}
		if product.Stock < qty {
			return nil, invalid(fmt.Sprintf("Stock insuficiente para %s", product.Name))
		}
		lines = append(lines, model.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			CategoryID:  product.CategoryID,
			Quantity:    qty,
			UnitPrice:   product.Price,
			Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	payment := req.PaymentMethod
	if payment == "" {
		payment = defaultPaymentMethod
	}
	order := &model.Order{
		UserID:          userID,
		Status:          model.OrderStatusPending,
		Total:           model.LineTotal(lines),
		DeliveryDate:    req.DeliveryDate,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Phone:           strings.TrimSpace(req.Phone),
		Notes:           strings.TrimSpace(req.Notes),
		PaymentMethod:   payment,
		Lines:           lines,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, invalid("Stock insuficiente para uno o más productos")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, model.OrderEventCreated, order)
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID) (*dto.OrderListResponse, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Orders: items, Total: len(items)}, nil
}

// GetMine returns the order only when userID owns it; other users' orders
// are reported as missing.
func (s *OrderService) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) CancelMine(ctx context.Context, userID, orderID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if err := s.cancel(ctx, order); err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) List(ctx context.Context, req dto.ListOrdersRequest) (*dto.OrderListResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, invalid("Estado de pedido inválido")
	}
	from, to, err := dayRange(req.From, req.To, s.loc)
	if err != nil {
		return nil, err
	}

	orders, total, err := s.orderRepo.List(ctx, repository.OrderFilter{
		Limit:  req.Limit,
		Offset: (req.Page - 1) * req.Limit,
		Status: req.Status,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Orders: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

// UpdateStatus moves an order forward. Cancelling goes through the stock
// restoring path.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*dto.OrderResponse, error) {
	if !status.Valid() {
		return nil, invalid("Estado de pedido inválido")
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	if status == model.OrderStatusCancelled {
		if err := s.cancel(ctx, order); err != nil {
			return nil, err
		}
	} else {
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, status); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil, ErrInvalidTransition
			}
			return nil, err
		}
		order.Status = status
		order.UpdatedAt = s.now()
		s.publish(ctx, model.OrderEventStatusChanged, order)
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) cancel(ctx context.Context, order *model.Order) error {
	if err := s.orderRepo.Cancel(ctx, order.ID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	order.Status = model.OrderStatusCancelled
	order.UpdatedAt = s.now()
	s.publish(ctx, model.OrderEventStatusChanged, order)
	return nil
}

func (s *OrderService) owned(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *model.Order) {
	if s.events == nil {
		return
	}
	event := model.OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
		Total:   order.Total,
		At:      s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("publish order event", "error", err, "order_id", order.ID, "type", eventType)
	}
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(reqs []dto.OrderLineRequest) (map[uuid.UUID]int, []uuid.UUID) {
	quantities := make(map[uuid.UUID]int, len(reqs))
	var ordered []uuid.UUID
	for _, r := range reqs {
		if _, seen := quantities[r.ProductID]; !seen {
			ordered = append(ordered, r.ProductID)
		}
		quantities[r.ProductID] += r.Quantity
	}
	return quantities, ordered
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	lines := make([]dto.OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, dto.OrderLineResponse{
			ID: l.ID, ProductID: l.ProductID, ProductName: l.ProductName,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal,
		})
	}
	return dto.OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		Total:           o.Total,
		DeliveryDate:    o.DeliveryDate,
		DeliveryAddress: o.DeliveryAddress,
		Phone:           o.Phone,
		Notes:           o.Notes,
		PaymentMethod:   o.PaymentMethod,
		Lines:           lines,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
