package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"coinfolio/app/middleware"
	"coinfolio/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data"`
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Total      *int        `json:"total"`
	Pagination *Pagination `json:"pagination"`
}

func newTestGate() *auth.Gate {
	return auth.NewGate("handler-test-secret", time.Hour, auth.WithCost(bcrypt.MinCost))
}

// newTestApp mounts every handler the way the server does, over one store.
func newTestApp(store *StoreMock, adminAuth bool) *fiber.App {

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	middleware.SetupMiddleware(app, middleware.Config{DbTimeout: 5 * time.Second})

	gate := newTestGate()
	api := app.Group("/api")

	authHandler := NewAuthHandler(store, store, gate, gate, gate)
	authHandler.InitRoute(api)

	NewCoinHandler(store, store).InitRoute(api, authHandler.Authenticate)
	NewPortfolioHandler(store, store).InitRoute(api, authHandler.Authenticate)

	var guards []fiber.Handler
	if adminAuth {
		guards = append(guards, authHandler.Authenticate, authHandler.RequireAdmin)
	}
	NewUserHandler(store, store, store, gate).InitRoute(api, guards...)

	return app
}

func sendRequest(app *fiber.App, url, method, token string, body any, out any) (int, error) {

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// register signs up a user through the API and returns its token and id.
func register(t *testing.T, app *fiber.App, email, username string) (string, string) {
	t.Helper()

	var resp envelope[authResp]
	status, err := sendRequest(app, "/api/auth/register", "POST", "", RegisterReq{
		Email:    email,
		Username: username,
		Password: "secret123",
		FullName: "Test User",
	}, &resp)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, status, resp.Message)

	return resp.Data.Token, resp.Data.User.ID.String()
}

func ptr[T any](v T) *T {
	return &v
}
