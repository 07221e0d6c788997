package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xela07ax/devguard/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrAdminExists = errors.New("admin user already exists")

// AdminRepository описывает требования к хранилищу администраторов
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	GetAdminByID(ctx context.Context, id string) (*domain.AdminUser, error)
	CreateAdmin(ctx context.Context, u *domain.AdminUser) (*domain.AdminUser, error)
}

// AdminTokenIssuer — выпуск админских токенов
type AdminTokenIssuer interface {
	IssueAdminToken(adminID, email string) (*domain.TokenResponse, error)
}

type AuthService struct {
	repo       AdminRepository
	tokens     AdminTokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(repo AdminRepository, tokens AdminTokenIssuer, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.Named("auth-service"),
	}
}

// Login проверяет пароль и выдает токен.
// Наружу всегда одна и та же ошибка — не раскрываем, что именно неверно
// (логин или пароль), для защиты от перебора.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenResponse, *domain.AdminUser, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password required", domain.ErrValidation)
	}

	// 1. Аутентификация (Источник правды — Postgres)
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil || admin == nil {
		return nil, nil, errors.New("invalid credentials")
	}

	// 2. Проверка пароля (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errors.New("invalid credentials")
	}

	resp, err := s.tokens.IssueAdminToken(admin.ID, admin.Email)
	if err != nil {
		s.logger.Error("failed to issue admin token", zap.Error(err))
		return nil, nil, err
	}

	s.logger.Info("admin logged in", zap.String("admin_id", admin.ID))
	return resp, admin, nil
}

// Register создает администратора. Эндпоинт начальной настройки:
// в проде закрывается на уровне деплоя.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.AdminUser, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", domain.ErrValidation)
	}

	existing, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("admin lookup failed: %w", err)
	}
	if existing != nil {
		return nil, ErrAdminExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.repo.CreateAdmin(ctx, &domain.AdminUser{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		s.logger.Error("failed to create admin", zap.Error(err))
		return nil, err
	}

	s.logger.Info("admin user created", zap.String("admin_id", created.ID))
	return created, nil
}

// Verify отдает профиль админа по идентичности из уже проверенного токена.
func (s *AuthService) Verify(ctx context.Context, adminID string) (*domain.AdminUser, error) {
	return s.repo.GetAdminByID(ctx, adminID)
}
