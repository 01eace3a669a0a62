package handlers

import (
	"context"
	"errors"
	"fmt"

	"adminpanel/internal/logging"
	"adminpanel/internal/middleware"
	"adminpanel/internal/repositories"
	"adminpanel/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         logging.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes registers the routes that need a signed-in account.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Get("/auth/me", h.HandleMe)
}

// credentialsRequest represents the request body for register and login.
type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// parseCredentials returns the body of a bad request response as problem when
// the request cannot be used.
func (h *AuthHandler) parseCredentials(c *fiber.Ctx) (creds services.Credentials, problem fiber.Map) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return creds, fiber.Map{"message": "Invalid request body"}
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		errors.As(err, &validationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return creds, fiber.Map{"message": "Validation failed", "errors": errorMessages}
	}
	return services.Credentials{Email: req.Email, Password: req.Password}, nil
}

// authError maps the sign-up and sign-in errors onto responses.
func (h *AuthHandler) authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmailInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrWeakPassword), errors.Is(err, services.ErrInvalidEmail):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
	}
	h.log.Error(c.UserContext(), "authentication failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Authentication service unavailable",
	})
}

// HandleRegister handles new account registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	creds, problem := h.parseCredentials(c)
	if problem != nil {
		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}

	token, account, err := h.authService.SignUp(c.UserContext(), creds)
	if err != nil {
		return h.authError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account registered successfully",
		"token":   token,
		"account": account,
	})
}

// HandleLogin handles sign-in and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	creds, problem := h.parseCredentials(c)
	if problem != nil {
		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}

	token, account, err := h.authService.SignIn(c.UserContext(), creds)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"account": account,
	})
}

// HandleMe returns the signed-in account.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	id, _ := c.Locals(middleware.LocalAccountID).(string)
	account, err := h.authService.Account(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Account no longer exists"})
		}
		h.log.Error(context.Background(), "account lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
	return c.JSON(fiber.Map{"account": account})
}
