package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

type AuthService struct {
	userRepo  repository.UserRepository
	adminRepo repository.AdminRepository
	logRepo   repository.LoginLogRepository
	jwtSecret []byte
	jwtExpiry time.Duration
	log       *slog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	adminRepo repository.AdminRepository,
	logRepo repository.LoginLogRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		adminRepo: adminRepo,
		logRepo:   logRepo,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		log:       log,
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("El nombre es obligatorio")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name: name, Email: email, Password: string(hashed),
		Phone: strings.TrimSpace(req.Phone), Address: strings.TrimSpace(req.Address), Active: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.generateToken(user.ID, model.AccountKindUser, "")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, meta dto.LoginMeta) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var accountID *uuid.UUID
	if user != nil {
		accountID = &user.ID
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		s.recordLogin(ctx, model.AccountKindUser, accountID, email, false, meta)
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		s.recordLogin(ctx, model.AccountKindUser, accountID, email, false, meta)
		return nil, ErrAccountDisabled
	}
	s.recordLogin(ctx, model.AccountKindUser, accountID, email, true, meta)

	token, err := s.generateToken(user.ID, model.AccountKindUser, "")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *AuthService) AdminLogin(ctx context.Context, req dto.LoginRequest, meta dto.LoginMeta) (*dto.AdminAuthResponse, error) {
	email := normalizeEmail(req.Email)
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	var accountID *uuid.UUID
	if admin != nil {
		accountID = &admin.ID
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		s.recordLogin(ctx, model.AccountKindAdmin, accountID, email, false, meta)
		return nil, ErrInvalidCredentials
	}
	if !admin.Active {
		s.recordLogin(ctx, model.AccountKindAdmin, accountID, email, false, meta)
		return nil, ErrAccountDisabled
	}
	s.recordLogin(ctx, model.AccountKindAdmin, accountID, email, true, meta)

	token, err := s.generateToken(admin.ID, model.AccountKindAdmin, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AdminAuthResponse{Token: token, Admin: toAdminResponse(admin)}, nil
}

// EnsureSeedAdmin creates a superadmin when the admins table is empty.
func (s *AuthService) EnsureSeedAdmin(ctx context.Context, name, email, password string) error {
	n, err := s.adminRepo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{
		Name: name, Email: normalizeEmail(email), Password: string(hashed),
		Role: model.AdminRoleSuperAdmin, Active: true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create seed admin: %w", err)
	}
	s.log.Info("seed admin created", "email", admin.Email)
	return nil
}

// recordLogin appends to the login log. Failures never affect the login.
func (s *AuthService) recordLogin(ctx context.Context, kind string, accountID *uuid.UUID, email string, success bool, meta dto.LoginMeta) {
	entry := &model.LoginLog{
		Kind: kind, AccountID: accountID, Email: email, Success: success,
		IP: meta.IP, UserAgent: meta.UserAgent,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.log.Warn("record login attempt", "error", err, "email", email)
	}
}

func (s *AuthService) generateToken(subject uuid.UUID, kind, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject.String(),
		"kind": kind,
		"exp":  now.Add(s.jwtExpiry).Unix(),
		"iat":  now.Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: user.ID, Name: user.Name, Email: user.Email,
		Phone: user.Phone, Address: user.Address, Active: user.Active, CreatedAt: user.CreatedAt,
	}
}

func toAdminResponse(admin *model.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID: admin.ID, Name: admin.Name, Email: admin.Email,
		Role: admin.Role, Active: admin.Active, CreatedAt: admin.CreatedAt,
	}
}
