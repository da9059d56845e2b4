package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

const (
	productCacheTTL   = 60 * time.Second
	featuredCacheKey  = "products:featured"
	featuredListLimit = 12
	productNameTaken  = "Ya existe un producto con ese nombre"
)

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
	images       ImageRemover
	log          *slog.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	redisClient *redis.Client,
	images ImageRemover,
	log *slog.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		redisClient:  redisClient,
		images:       images,
		log:          log,
	}
}

// Create validates the form and stores the product. image is the public path
// of an already saved upload; it is deleted whenever the product is rejected.
func (s *ProductService) Create(ctx context.Context, form dto.ProductForm, image string) (*dto.ProductResponse, error) {
	product := &model.Product{Active: true, Image: image}
	if err := s.apply(ctx, product, form, true); err != nil {
		s.discard(image)
		return nil, err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		s.discard(image)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid(productNameTaken)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidateCache(ctx, product.ID)
	resp := toProductResponse(product)
	return &resp, nil
}

// Get returns an active product, served from Redis when cached.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil || !product.Active {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)
	s.cache(ctx, cacheKey, resp)
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest, includeInactive bool) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{
		Limit:      req.Limit,
		Offset:     (req.Page - 1) * req.Limit,
		Search:     strings.TrimSpace(req.Search),
		Featured:   req.Featured,
		OnlyActive: !includeInactive,
		Sort:       req.Sort,
		Order:      req.Order,
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, invalid("La categoría no existe")
		}
		filter.CategoryID = &id
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) Featured(ctx context.Context) ([]dto.ProductResponse, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, featuredCacheKey).Result(); err == nil {
			var items []dto.ProductResponse
			if json.Unmarshal([]byte(cached), &items) == nil {
				return items, nil
			}
		}
	}

	featured := true
	products, _, err := s.productRepo.List(ctx, repository.ProductFilter{
		Limit: featuredListLimit, Featured: &featured, OnlyActive: true, Sort: "created_at", Order: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	s.cache(ctx, featuredCacheKey, items)
	return items, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, form dto.ProductForm, image string) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.discard(image)
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		s.discard(image)
		return nil, ErrProductNotFound
	}

	if err := s.apply(ctx, product, form, false); err != nil {
		s.discard(image)
		return nil, err
	}
	previous := product.Image
	if image != "" {
		product.Image = image
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		s.discard(image)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid(productNameTaken)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	if image != "" && previous != "" && previous != image {
		s.discard(previous)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// Delete is a soft delete: the row stays for order history.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

// apply normalises the string form onto product. On create every required
// field must be present; on update blank fields keep their current value.
func (s *ProductService) apply(ctx context.Context, product *model.Product, form dto.ProductForm, create bool) error {
	name := strings.TrimSpace(form.Name)
	if name == "" && create {
		return invalid("El nombre es obligatorio")
	}
	if name != "" && !strings.EqualFold(name, product.Name) {
		existing, err := s.productRepo.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("check product name: %w", err)
		}
		if existing != nil && existing.ID != product.ID {
			return invalid(productNameTaken)
		}
	}

	if raw := strings.TrimSpace(form.Price); raw != "" || create {
		price, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if err != nil || !price.IsPositive() {
			return invalid("El precio debe ser un número positivo")
		}
		product.Price = price.Round(2)
	}

	if raw := strings.TrimSpace(form.Stock); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return invalid("El stock debe ser un entero mayor o igual a 0")
		}
		product.Stock = stock
	}

	if raw := strings.TrimSpace(form.CategoryID); raw != "" || create {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalid("La categoría no existe")
		}
		category, err := s.categoryRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if category == nil || !category.Active {
			return invalid("La categoría no existe")
		}
		product.CategoryID = id
	}

	if name != "" {
		product.Name = name
	}
	if desc := strings.TrimSpace(form.Description); desc != "" {
		product.Description = desc
	}
	if form.Featured != "" {
		v, ok := parseBool(form.Featured)
		if !ok {
			return invalid("El campo destacado debe ser verdadero o falso")
		}
		product.Featured = v
	}
	if form.Active != "" {
		v, ok := parseBool(form.Active)
		if !ok {
			return invalid("El campo activo debe ser verdadero o falso")
		}
		product.Active = v
	}
	return nil
}

func (s *ProductService) discard(image string) {
	if image == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(image); err != nil {
		s.log.Warn("remove image", "error", err, "path", image)
	}
}

func (s *ProductService) cache(ctx context.Context, key string, v any) {
	if s.redisClient == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		s.redisClient.Set(ctx, key, data, productCacheTTL)
	}
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, productCacheKey(id), featuredCacheKey).Err(); err != nil {
		s.log.Warn("invalidate product cache", "error", err, "product_id", id)
	}
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		Image:       p.Image,
		Featured:    p.Featured,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
