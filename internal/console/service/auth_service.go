package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/infra/auth"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

var ErrSetupDone = errors.New("initial setup has already been completed")

// AuthService выпускает RS256-токены и создает первого оператора.
// BaseValidator встроен, чтобы сервис реализовывал auth.TokenValidator
// для middleware консоли.
type AuthService struct {
	*auth.BaseValidator
	repo       UserRepository
	privateKey *rsa.PrivateKey
	tokenTTL   time.Duration
	bcryptCost int
}

func NewAuthService(repo UserRepository, validator *auth.BaseValidator, privateKey *rsa.PrivateKey, tokenTTL time.Duration, bcryptCost int) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		BaseValidator: validator,
		repo:          repo,
		privateKey:    privateKey,
		tokenTTL:      tokenTTL,
		bcryptCost:    bcryptCost,
	}
}

// SetupRequired — true, пока не создан ни один оператор.
func (s *AuthService) SetupRequired(ctx context.Context) (bool, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// CreateInitialUser создает первого (и единственного через этот путь)
// оператора. Повторный вызов после завершения setup — ошибка.
func (s *AuthService) CreateInitialUser(ctx context.Context, username, password string) error {
	required, err := s.SetupRequired(ctx)
	if err != nil {
		return err
	}
	if !required {
		return ErrSetupDone
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Scopes:       map[string]bool{"settings.write": true},
	})
}

func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	// 1. Аутентификация (источник правды — Postgres)
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, errors.New("invalid credentials")
	}

	// 2. Проверка пароля (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	// 3. Формирование Claims
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &domain.CustomClaims{
		UserID: user.ID,
		Scopes: user.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "runnerdeck",
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	// 4. Подпись токена закрытым ключом (RS256)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
