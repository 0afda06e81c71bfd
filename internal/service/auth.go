package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// AuthService 负责用户注册、登录与 JWT 签发。
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	if userRepo == nil {
		panic("NewAuthService: userRepo is nil")
	}
	if jwtSecret == "" {
		panic("NewAuthService: jwtSecret is empty")
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// Register 创建新用户并返回登录令牌。
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "Register",
		"username":  username,
	})

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if len(username) < 3 || len(username) > 32 {
		return nil, "", ErrInvalidInput
	}
	if !strings.Contains(email, "@") {
		return nil, "", ErrInvalidInput
	}
	if len(password) < 8 {
		return nil, "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password")
		return nil, "", ErrInternalServer
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration rejected: duplicate username or email")
			return nil, "", ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Failed to save user")
		return nil, "", ErrInternalServer
	}

	token, err := s.generateJWT(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to sign token")
		return nil, "", ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User registered")
	return user, token, nil
}

// Login 校验邮箱与密码，成功后返回用户与令牌。
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "Login",
		"email":     email,
	})

	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 不区分“用户不存在”与“密码错误”，避免探测账号。
			return nil, "", ErrAuthenticationFailed
		}
		logCtx.WithError(err).Error("Failed to query user")
		return nil, "", ErrInternalServer
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logCtx.Warn("Login rejected: wrong password")
		return nil, "", ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to sign token")
		return nil, "", ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in")
	return user, token, nil
}

// GetUser 按 ID 查询用户（/users/me）。
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to query user")
		return nil, ErrInternalServer
	}
	return user, nil
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.jwtExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
