package app

import (
	"coinfolio/app/handler"
	"coinfolio/app/middleware"
	"coinfolio/internal/auth"
	"coinfolio/internal/db"

	"github.com/gofiber/fiber/v2"
)

type Options struct {
	AdminAuth  bool
	Middleware middleware.Config
}

// New builds the fiber app with every route mounted under /api.
func New(stg db.Storage, gate *auth.Gate, opts Options) *fiber.App {

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
		AppName:      "coinfolio",
	})

	middleware.SetupMiddleware(app, opts.Middleware)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(handler.Response{Success: true, Message: "ok"})
	})

	api := app.Group("/api")

	authHandler := handler.NewAuthHandler(stg, stg, gate, gate, gate)
	authHandler.InitRoute(api)

	handler.NewCoinHandler(stg, stg).InitRoute(api, authHandler.Authenticate)
	handler.NewPortfolioHandler(stg, stg).InitRoute(api, authHandler.Authenticate)

	var adminGuards []fiber.Handler
	if opts.AdminAuth {
		adminGuards = append(adminGuards, authHandler.Authenticate, authHandler.RequireAdmin)
	}
	handler.NewUserHandler(stg, stg, stg, gate).InitRoute(api, adminGuards...)

	return app
}
