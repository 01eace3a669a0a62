package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"adminpanel/internal/logging"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (jwt.MapClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return jwt.MapClaims{"account_id": "acc-1", "email": "a@example.com"}, nil
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/private", AuthRequired(stubValidator{}, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalAccountID).(string))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic good", fiber.StatusUnauthorized},
		{"bad token", "Bearer bad", fiber.StatusUnauthorized},
		{"valid", "Bearer good", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(NewVisitors(0.001, 2)))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestVisitors_Sweep(t *testing.T) {
	v := NewVisitors(1, 1)
	v.Get("10.0.0.1")
	v.Get("10.0.0.2")
	require.Equal(t, 2, v.Len())

	v.Sweep(time.Hour)
	assert.Equal(t, 2, v.Len())
	v.Sweep(-1)
	assert.Equal(t, 0, v.Len())
}
