package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adminpanel/internal/logging"
	"adminpanel/internal/models"
	"adminpanel/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// Credentials is the sign-up and sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	accounts   repositories.AccountRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	validate   *validator.Validate
	log        logging.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(accounts repositories.AccountRepository, jwtSecret string, tokenTTL time.Duration, log logging.Logger) *AuthService {
	return &AuthService{
		accounts:   accounts,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
		validate:   validator.New(),
		log:        log,
	}
}

func (s *AuthService) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// SignUp registers a new account, hashes its password and returns a token.
func (s *AuthService) SignUp(ctx context.Context, creds Credentials) (string, *models.Account, error) {
	if err := s.checkEmail(creds.Email); err != nil {
		return "", nil, err
	}
	if len(creds.Password) < MinPasswordLength {
		return "", nil, ErrWeakPassword
	}

	if _, err := s.accounts.GetByEmail(ctx, creds.Email); err == nil {
		return "", nil, ErrEmailInUse
	} else if !errors.Is(err, repositories.ErrAccountNotFound) {
		return "", nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account := &models.Account{Email: creds.Email, Password: string(hashedPassword)}
	if err := s.accounts.Create(ctx, account); err != nil {
		return "", nil, fmt.Errorf("failed to register account: %w", err)
	}
	s.log.Info(ctx, "account registered", "account_id", account.ID)

	token, err := s.issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// SignIn authenticates an account and returns a JWT token if successful.
func (s *AuthService) SignIn(ctx context.Context, creds Credentials) (string, *models.Account, error) {
	if err := s.checkEmail(creds.Email); err != nil {
		return "", nil, err
	}
	account, err := s.accounts.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(creds.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *AuthService) issue(account *models.Account) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": account.ID,
		"email":      account.Email,
		"exp":        now.Add(s.tokenDurat).Unix(),
		"iat":        now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Account returns the account a validated token belongs to.
func (s *AuthService) Account(ctx context.Context, id string) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
