package handler

import (
	"context"
	"testing"

	m "coinfolio/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler(t *testing.T) {

	store := NewStoreMock()
	app := newTestApp(store, true)

	userToken, userID := register(t, app, "alice@example.com", "alice")
	adminToken, adminID := register(t, app, "root@example.com", "root")
	_, err := store.UpdateUser(context.Background(), m.ID(adminID), m.Fields{"role": m.RoleAdmin})
	require.NoError(t, err)

	t.Run("admin guard", func(t *testing.T) {
		var resp envelope[any]
		status, err := sendRequest(app, "/api/users", "GET", userToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, status)
		assert.Equal(t, "Admin access required", resp.Error)

		status, err = sendRequest(app, "/api/users", "GET", "", nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("Users", func(t *testing.T) {
		t.Run("all", func(t *testing.T) {
			var resp envelope[[]m.User]
			status, err := sendRequest(app, "/api/users", "GET", adminToken, nil, &resp)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "Users retrieved successfully", resp.Message)
			assert.Len(t, resp.Data, 2)
			assert.Nil(t, resp.Pagination)
			// newest first
			assert.Equal(t, "root", resp.Data[0].Username)
		})

		t.Run("paginated", func(t *testing.T) {
			var resp envelope[[]m.User]
			status, err := sendRequest(app, "/api/users?page=1&limit=1", "GET", adminToken, nil, &resp)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Len(t, resp.Data, 1)
			require.NotNil(t, resp.Pagination)
			assert.Equal(t, int64(2), resp.Pagination.Total)
			assert.Equal(t, 2, resp.Pagination.TotalPages)
			assert.True(t, resp.Pagination.HasNextPage)
			assert.False(t, resp.Pagination.HasPrevPage)
			require.NotNil(t, resp.Pagination.NextPage)
			assert.Equal(t, 2, *resp.Pagination.NextPage)
			assert.Nil(t, resp.Pagination.PrevPage)
		})
	})

	var created m.User

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			var resp envelope[m.User]
			status, err := sendRequest(app, "/api/users", "POST", adminToken, CreateUserReq{
				Username:    "dave",
				Email:       "dave@example.com",
				Password:    "secret123",
				FullName:    "Dave",
				DateOfBirth: "1990-04-01",
				Role:        "admin",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusCreated, status)
			assert.Equal(t, "User created successfully", resp.Message)
			assert.Equal(t, m.RoleAdmin, resp.Data.Role)
			require.NotNil(t, resp.Data.DateOfBirth)
			assert.Equal(t, 1990, resp.Data.DateOfBirth.Year())
			created = resp.Data
		})

		t.Run("duplicate", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/users", "POST", adminToken, CreateUserReq{
				Username: "dave",
				Email:    "dave2@example.com",
				Password: "secret123",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusConflict, status)
			assert.Equal(t, "User with this username or email already exists", resp.Message)
		})

		t.Run("invalid role", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/users", "POST", adminToken, CreateUserReq{
				Username: "erin",
				Email:    "erin@example.com",
				Password: "secret123",
				Role:     "owner",
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "Role must be user or admin", resp.Message)
		})
	})

	t.Run("User", func(t *testing.T) {
		var resp envelope[m.User]
		status, err := sendRequest(app, "/api/users/"+userID, "GET", adminToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "alice", resp.Data.Username)

		status, err = sendRequest(app, "/api/users/"+m.NewID().String(), "GET", adminToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, status)

		status, err = sendRequest(app, "/api/users/123", "GET", adminToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, status)
	})

	t.Run("UpdateUser", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			var resp envelope[m.User]
			status, err := sendRequest(app, "/api/users/"+created.ID.String(), "PUT", adminToken, UpdateUserReq{
				FullName: ptr("David"),
				Password: ptr("newsecret"),
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "User updated successfully", resp.Message)
			assert.Equal(t, "David", resp.Data.FullName)

			var login envelope[authResp]
			status, err = sendRequest(app, "/api/auth/login", "POST", "", LoginReq{
				Email:    "dave@example.com",
				Password: "newsecret",
			}, &login)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
		})

		t.Run("email taken", func(t *testing.T) {
			var resp envelope[any]
			status, err := sendRequest(app, "/api/users/"+created.ID.String(), "PUT", adminToken, UpdateUserReq{
				Email: ptr("alice@example.com"),
			}, &resp)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusConflict, status)
			assert.Equal(t, "Email or username already exists", resp.Message)
		})

		t.Run("keeping own email", func(t *testing.T) {
			status, err := sendRequest(app, "/api/users/"+created.ID.String(), "PUT", adminToken, UpdateUserReq{
				Email: ptr("dave@example.com"),
			}, nil)

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, status)
		})
	})

	t.Run("DeleteUser cascades to coins", func(t *testing.T) {
		status, err := sendRequest(app, "/api/coins", "POST", userToken, CreateCoinReq{
			Symbol:          "BTC",
			Name:            "Bitcoin",
			Quantity:        ptr(1.0),
			AverageBuyPrice: ptr(100.0),
		}, nil)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, status)

		var resp envelope[any]
		status, err = sendRequest(app, "/api/users/"+userID, "DELETE", adminToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "User and associated data deleted successfully", resp.Message)

		coins, err := store.Coins(context.Background(), m.ID(userID), m.CoinFilter{})
		require.NoError(t, err)
		assert.Empty(t, coins)

		status, err = sendRequest(app, "/api/users/"+userID, "DELETE", adminToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, status)

		// the deleted user's token no longer authenticates
		status, err = sendRequest(app, "/api/coins", "GET", userToken, nil, &resp)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, status)

		store.prettyPrint()
	})
}

func TestUserHandlerOpen(t *testing.T) {

	store := NewStoreMock()
	app := newTestApp(store, false)
	register(t, app, "alice@example.com", "alice")

	var resp envelope[[]m.User]
	status, err := sendRequest(app, "/api/users", "GET", "", nil, &resp)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, resp.Data, 1)

	store.reset()
	status, err = sendRequest(app, "/api/users", "GET", "", nil, &resp)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)
}
