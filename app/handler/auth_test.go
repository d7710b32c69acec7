package handler

import (
	"context"
	"testing"

	m "coinfolio/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler(t *testing.T) {

	store := NewStoreMock()
	app := newTestApp(store, false)

	token, userID := register(t, app, "alice@example.com", "alice")

	t.Run("Register", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			var resp envelope[authResp]
			status, err := sendRequest(app, "/api/auth/register", "POST", "", RegisterReq{
				Email:    "bob@example.com",
				Username: "bob_01",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusCreated, status)
			assert.True(t, resp.Success)
			assert.Equal(t, "User registered successfully", resp.Message)
			assert.Equal(t, "bob@example.com", resp.Data.User.Email)
			assert.True(t, resp.Data.User.IsActive)
			assert.NotEmpty(t, resp.Data.Token)

			stored, err := store.UserByEmail(context.Background(), "bob@example.com")
			require.NoError(t, err)
			assert.NotEqual(t, "secret123", stored.Password)
			assert.Equal(t, m.RoleUser, stored.Role)
			assert.Equal(t, "USD", stored.Preferences.Currency)
		})

		t.Run("email already registered", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/register", "POST", "", RegisterReq{
				Email:    "alice@example.com",
				Username: "someone_else",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusConflict, status)
			assert.False(t, resp.Success)
			assert.Equal(t, "User already exists", resp.Error)
			assert.Equal(t, "Email already registered", resp.Message)
		})

		t.Run("username already taken", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/register", "POST", "", RegisterReq{
				Email:    "other@example.com",
				Username: "alice",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusConflict, status)
			assert.Equal(t, "Username already taken", resp.Message)
		})

		t.Run("validation failure lists every problem", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/register", "POST", "", RegisterReq{
				Email:    "not-an-email",
				Username: "ab",
				Password: "123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "Validation failed", resp.Error)
			assert.Contains(t, resp.Message, "Invalid email format")
			assert.Contains(t, resp.Message, "Username must be at least 3 characters long")
			assert.Contains(t, resp.Message, "Password must be at least 6 characters long")
		})

		t.Run("malformed body", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/register", "POST", "", "{not json", &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "Invalid request", resp.Error)
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			var resp envelope[authResp]
			status, err := sendRequest(app, "/api/auth/login", "POST", "", LoginReq{
				Email:    "alice@example.com",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "Login successful", resp.Message)
			assert.Equal(t, userID, resp.Data.User.ID.String())
			assert.NotEmpty(t, resp.Data.Token)

			stored, err := store.UserByEmail(context.Background(), "alice@example.com")
			require.NoError(t, err)
			assert.NotNil(t, stored.LastLoginAt)
		})

		t.Run("wrong password", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/login", "POST", "", LoginReq{
				Email:    "alice@example.com",
				Password: "wrong-password",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "Invalid credentials", resp.Error)
			assert.Equal(t, "Email or password is incorrect", resp.Message)
		})

		t.Run("unknown email", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/login", "POST", "", LoginReq{
				Email:    "nobody@example.com",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "Invalid credentials", resp.Error)
		})

		t.Run("disabled account", func(t *testing.T) {
			carolToken, carolID := register(t, app, "carol@example.com", "carol")
			_, err := store.UpdateUser(context.Background(), m.ID(carolID), m.Fields{"isActive": false})
			require.NoError(t, err)

			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/login", "POST", "", LoginReq{
				Email:    "carol@example.com",
				Password: "secret123",
			}, &resp)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "Account disabled", resp.Error)

			// tokens issued before the account was disabled stop working too
			status, err = sendRequest(app, "/api/coins", "GET", carolToken, nil, &resp)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "User not found or inactive", resp.Error)
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("no token", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/logout", "POST", "", nil, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "No token provided", resp.Error)
		})

		t.Run("bad token", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/logout", "POST", "not.a.token", nil, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "Invalid or expired token", resp.Error)
		})

		t.Run("logout", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/auth/logout", "POST", token, nil, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "Logout successful", resp.Message)
		})
	})
}
