package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"adminpanel/internal/logging"
	"adminpanel/internal/models"
	"adminpanel/internal/repositories"
	"adminpanel/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository is a mock implementation of repositories.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(account)
	if account.ID == "" {
		account.ID = "account-1"
	}
	return args.Error(0)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func newAuthService(repo repositories.AccountRepository) *services.AuthService {
	return services.NewAuthService(repo, testJWTSecret, time.Hour, logging.Discard())
}

func notFound(email string) error {
	return fmt.Errorf("%w: email %s", repositories.ErrAccountNotFound, email)
}

func TestAuthService_SignUp(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetByEmail", "admin@example.com").Return(nil, notFound("admin@example.com")).Once()
	mockRepo.On("Create", mock.MatchedBy(func(a *models.Account) bool {
		return a.Email == "admin@example.com" && bcrypt.CompareHashAndPassword([]byte(a.Password), []byte("secret123")) == nil
	})).Return(nil).Once()

	token, account, err := authService.SignUp(ctx, services.Credentials{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "account-1", account.ID)
	mockRepo.AssertExpectations(t)

	// Email already in use
	mockRepo.On("GetByEmail", "admin@example.com").Return(&models.Account{ID: "1"}, nil).Once()
	_, _, err = authService.SignUp(ctx, services.Credentials{Email: "admin@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, services.ErrEmailInUse)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_SignUpRejectsBadInput(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	_, _, err := authService.SignUp(ctx, services.Credentials{Email: "not-an-email", Password: "secret123"})
	assert.ErrorIs(t, err, services.ErrInvalidEmail)

	_, _, err = authService.SignUp(ctx, services.Credentials{Email: "a@example.com", Password: "12345"})
	assert.ErrorIs(t, err, services.ErrWeakPassword)

	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_SignIn(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	account := &models.Account{ID: "account-123", Email: "test@example.com", Password: string(hashedPassword)}

	// Successful sign-in
	mockRepo.On("GetByEmail", account.Email).Return(account, nil).Once()
	token, got, err := authService.SignIn(ctx, services.Credentials{Email: account.Email, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, account.ID, claims["account_id"])
	assert.Equal(t, account.Email, claims["email"])

	// Wrong password
	mockRepo.On("GetByEmail", account.Email).Return(account, nil).Once()
	_, _, err = authService.SignIn(ctx, services.Credentials{Email: account.Email, Password: "wrongpassword"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Unknown account gets the same answer
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, notFound("nobody@example.com")).Once()
	_, _, err = authService.SignIn(ctx, services.Credentials{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockAccountRepository))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": "account-123",
		"exp":        jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "account-123", claims["account_id"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": "account-123",
		"exp":        jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	otherSecret, _ := token.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(otherSecret)
	assert.Error(t, err)
}
