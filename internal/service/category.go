package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

var ErrCategoryNotFound = errors.New("category not found")

const categoryNameTaken = "Ya existe una categoría con ese nombre"

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	images       ImageRemover
	log          *slog.Logger
}

func NewCategoryService(categoryRepo repository.CategoryRepository, images ImageRemover, log *slog.Logger) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, images: images, log: log}
}

// List returns active categories unless includeInactive is set (admin view).
func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]dto.CategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx, !includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, toCategoryResponse(&categories[i]))
	}
	return items, nil
}

// Get returns one category. Hidden categories are only visible with
// includeInactive.
func (s *CategoryService) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*dto.CategoryResponse, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil || (!category.Active && !includeInactive) {
		return nil, ErrCategoryNotFound
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

// Create stores a new category. image is the public path of an already saved
// upload, or empty; it is removed again when the category is rejected.
func (s *CategoryService) Create(ctx context.Context, form dto.CategoryForm, image string) (*dto.CategoryResponse, error) {
	category := &model.Category{Active: true, Image: image}
	if err := s.apply(ctx, category, form); err != nil {
		s.discard(image)
		return nil, err
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		s.discard(image)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid(categoryNameTaken)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, form dto.CategoryForm, image string) (*dto.CategoryResponse, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		s.discard(image)
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		s.discard(image)
		return nil, ErrCategoryNotFound
	}

	if err := s.apply(ctx, category, form); err != nil {
		s.discard(image)
		return nil, err
	}
	previous := category.Image
	if image != "" {
		category.Image = image
	}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		s.discard(image)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid(categoryNameTaken)
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	if image != "" && previous != "" && previous != image {
		s.discard(previous)
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

// Delete hides the category; products keep referencing it.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (s *CategoryService) apply(ctx context.Context, category *model.Category, form dto.CategoryForm) error {
	name := strings.TrimSpace(form.Name)
	if name == "" && category.Name == "" {
		return invalid("El nombre es obligatorio")
	}
	if name != "" && !strings.EqualFold(name, category.Name) {
		existing, err := s.categoryRepo.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if existing != nil && existing.ID != category.ID {
			return invalid(categoryNameTaken)
		}
	}
	if name != "" {
		category.Name = name
	}
	if desc := strings.TrimSpace(form.Description); desc != "" {
		category.Description = desc
	}
	if form.Active != "" {
		active, ok := parseBool(form.Active)
		if !ok {
			return invalid("El campo activo debe ser verdadero o falso")
		}
		category.Active = active
	}
	return nil
}

func (s *CategoryService) discard(image string) {
	if image == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(image); err != nil {
		s.log.Warn("remove image", "error", err, "path", image)
	}
}

func toCategoryResponse(c *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID: c.ID, Name: c.Name, Description: c.Description, Image: c.Image,
		Active: c.Active, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}
