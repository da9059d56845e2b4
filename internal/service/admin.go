package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

var ErrAdminEmailTaken = errors.New("admin email already registered")

type AdminService struct {
	adminRepo repository.AdminRepository
}

func NewAdminService(adminRepo repository.AdminRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo}
}

func (s *AdminService) Create(ctx context.Context, req dto.CreateAdminRequest) (*dto.AdminResponse, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check admin: %w", err)
	}
	if existing != nil {
		return nil, ErrAdminEmailTaken
	}

	role := req.Role
	if role == "" {
		role = model.AdminRoleAdmin
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		Name: strings.TrimSpace(req.Name), Email: email, Password: string(hashed),
		Role: role, Active: true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAdminEmailTaken
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	resp := toAdminResponse(admin)
	return &resp, nil
}

func (s *AdminService) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get admin: %w", err)
	}
	return admin != nil && admin.Active, nil
}

func (s *AdminService) List(ctx context.Context) ([]dto.AdminResponse, error) {
	admins, err := s.adminRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	items := make([]dto.AdminResponse, 0, len(admins))
	for i := range admins {
		items = append(items, toAdminResponse(&admins[i]))
	}
	return items, nil
}
