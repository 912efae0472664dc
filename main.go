package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"

	"threadmail/config"
	"threadmail/handlers/api"
	"threadmail/middleware"
	"threadmail/utils"
)

func main() {
	utils.Log.Info("Initializing threadmail...")

	// The reloader re-reads config.toml lazily when it changes, so the
	// threading toggle can be flipped at runtime.
	cfg, err := config.NewReloader("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		return
	}
	utils.Log.SetLevel(utils.ParseLevel(cfg.Current().Server.LogLevel))

	store := session.New(session.Config{
		Expiration:     24 * time.Hour,
		CookieSecure:   false, // Set to true in production with HTTPS
		CookieHTTPOnly: true,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Add global middleware
	app.Use(recover.New())  // Recover from panics
	app.Use(logger.New())   // Request logging
	app.Use(compress.New()) // Response compression

	// Add rate limiting (100 requests per minute per IP)
	app.Use(middleware.RateLimiter(100, time.Minute))

	cache := utils.NewHeaderCache(time.Duration(cfg.Current().Cache.TTLSeconds) * time.Second)

	authHandler := api.NewAuthHandler(store, cfg)
	threadHandler := api.NewThreadHandler(store, cfg, cache)

	// Public routes
	app.Post("/login", authHandler.HandleLogin)
	app.Get("/logout", authHandler.HandleLogout)

	// Protected routes group
	protected := app.Group("/api", api.SessionMiddleware(store))
	{
		protected.Get("/folders", threadHandler.HandleFolders)
		protected.Get("/folder/:name/threads", threadHandler.HandleThreads)
		protected.Get("/folder/:name/threadrefs", threadHandler.HandleThreadRefs)
		protected.Get("/folder/:name/conversations", threadHandler.HandleConversations)
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Start server
	utils.Log.Info("Starting server on port %d...", cfg.Current().Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Current().Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
