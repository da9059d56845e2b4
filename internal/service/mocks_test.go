package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserRepo struct {
	users    map[string]*model.User
	byID     map[uuid.UUID]*model.User
	writeErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User), byID: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.Email] = u
	m.byID[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[email], nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if u, ok := m.byID[id]; ok {
		u.Password = hash
	}
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Active = active
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int, search string) ([]model.User, int, error) {
	var all []model.User
	for _, u := range m.byID {
		if search == "" || strings.Contains(u.Name, search) || strings.Contains(u.Email, search) {
			all = append(all, *u)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

type mockAdminRepo struct {
	admins   map[string]*model.Admin
	writeErr error
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: make(map[string]*model.Admin)}
}

func (m *mockAdminRepo) Create(_ context.Context, admin *model.Admin) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	admin.ID = uuid.New()
	admin.CreatedAt = time.Now()
	m.admins[admin.Email] = admin
	return nil
}

func (m *mockAdminRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Admin, error) {
	for _, a := range m.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAdminRepo) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	return m.admins[email], nil
}

func (m *mockAdminRepo) List(_ context.Context) ([]model.Admin, error) {
	var out []model.Admin
	for _, a := range m.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAdminRepo) Count(_ context.Context) (int, error) {
	return len(m.admins), nil
}

type mockLoginLogRepo struct {
	entries []model.LoginLog
	err     error
}

func (m *mockLoginLogRepo) Create(_ context.Context, entry *model.LoginLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
	writeErr   error
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[uuid.UUID]*model.Category)}
}

func (m *mockCategoryRepo) add(name string) *model.Category {
	c := &model.Category{ID: uuid.New(), Name: name, Active: true}
	m.categories[c.ID] = c
	return c
}

func (m *mockCategoryRepo) Create(_ context.Context, c *model.Category) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	c.ID = uuid.New()
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	return m.categories[id], nil
}

func (m *mockCategoryRepo) GetByName(_ context.Context, name string) (*model.Category, error) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepo) List(_ context.Context, onlyActive bool) ([]model.Category, error) {
	var out []model.Category
	for _, c := range m.categories {
		if !onlyActive || c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *model.Category) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := m.categories[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Active = active
	return nil
}

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
	created  int
	writeErr error
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	m.created++
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByName(_ context.Context, name string) (*model.Product, error) {
	for _, p := range m.products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		if f.OnlyActive && !p.Active {
			continue
		}
		if f.Featured != nil && p.Featured != *f.Featured {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Active = active
	return nil
}

type mockOrderRepo struct {
	orders    map[uuid.UUID]*model.Order
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepo) add(o *model.Order) *model.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orders[o.ID] = o
	return o
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) List(_ context.Context, f repository.OrderFilter) ([]model.Order, int, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !o.CreatedAt.Before(*f.To) {
			continue
		}
		orders = append(orders, *o)
	}
	return orders, len(orders), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (m *mockOrderRepo) Cancel(_ context.Context, id uuid.UUID) error {
	o, ok := m.orders[id]
	if !ok || o.Status != model.OrderStatusPending {
		return repository.ErrStatusConflict
	}
	o.Status = model.OrderStatusCancelled
	return nil
}

func (m *mockOrderRepo) ListForReport(_ context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.Status == model.OrderStatusCancelled || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

type mockImageRemover struct {
	mu      sync.Mutex
	removed []string
}

func (m *mockImageRemover) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return nil
}

type mockPublisher struct {
	events []model.OrderEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event model.OrderEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

var errBroker = errors.New("broker unavailable")

// errUniqueRace is what a repository returns when a concurrent request took
// the same email or name between the service's read and its write.
var errUniqueRace = fmt.Errorf("insert: %w", repository.ErrDuplicate)
