package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
	"github.com/NTitterton/agorusta/internal/repository/mocks"
	"github.com/NTitterton/agorusta/internal/service"
)

const testJWTSecret = "very-secret-key"

func newAuthService(userRepo *mocks.UserRepository) *service.AuthService {
	return service.NewAuthService(userRepo, testJWTSecret, time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()
	password := "StrongPass123"

	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		assert.Equal(t, "newbie", user.Username)
		assert.Equal(t, "newbie@example.com", user.Email)
		assert.NotEmpty(t, user.ID, "应生成用户 ID")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)), "密码应被正确哈希")
		return true
	})).Return(nil).Once()

	// Act
	user, token, err := authService.Register(ctx, "newbie", "Newbie@Example.com", password)

	// Assert
	require.NoError(t, err, "成功注册时不应有错误")
	require.NotNil(t, user)
	assert.Equal(t, "newbie@example.com", user.Email, "邮箱应被归一化为小写")
	assert.NotEmpty(t, token, "应返回登录令牌")

	// 验证令牌 claims
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "newbie", claims["username"])

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()

	// Act
	user, token, err := authService.Register(ctx, "taken", "taken@example.com", "StrongPass123")

	// Assert
	assert.ErrorIs(t, err, service.ErrRegistrationFailed, "重名注册应返回 ErrRegistrationFailed")
	assert.Nil(t, user)
	assert.Empty(t, token)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"用户名太短", "ab", "a@b.com", "StrongPass123"},
		{"邮箱缺少 @", "alice", "not-an-email", "StrongPass123"},
		{"密码太短", "alice", "a@b.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := authService.Register(ctx, tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
	// 输入校验失败时不应触碰存储
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()
	password := "StrongPass123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &domain.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
	}
	mockUserRepo.On("FindByEmail", ctx, "alice@example.com").Return(stored, nil).Once()

	// Act
	user, token, err := authService.Login(ctx, "Alice@Example.com", password)

	// Assert
	require.NoError(t, err, "正确密码登录不应失败")
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, token)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)

	mockUserRepo.On("FindByEmail", ctx, "alice@example.com").
		Return(&domain.User{ID: "user-1", Email: "alice@example.com", PasswordHash: string(hash)}, nil).Once()

	// Act
	_, _, err := authService.Login(ctx, "alice@example.com", "wrong-password")

	// Assert
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	// Arrange: 用户不存在时也返回认证失败，避免探测账号
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByEmail", ctx, "ghost@example.com").
		Return(nil, repository.ErrUserNotFound).Once()

	// Act
	_, _, err := authService.Login(ctx, "ghost@example.com", "whatever1")

	// Assert
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
	assert.False(t, errors.Is(err, service.ErrUserNotFound), "不应泄露用户是否存在")
	mockUserRepo.AssertExpectations(t)
}
