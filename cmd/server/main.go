package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekinacar/solace/internal/config"
	"github.com/ekinacar/solace/internal/database"
	"github.com/ekinacar/solace/internal/handlers"
	"github.com/ekinacar/solace/internal/realtime"
	"github.com/ekinacar/solace/internal/routes"
	"github.com/ekinacar/solace/internal/services"
	"github.com/ekinacar/solace/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// JSON structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting Solace", "version", handlers.Version)

	// ─── Config ──────────────────────────────────────────────────────────
	cfg := config.Load()

	// ─── Database ────────────────────────────────────────────────────────
	if err := database.Connect(cfg); err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	db := database.DB

	// ─── Realtime Hub + Broadcast Backbone ──────────────────────────────
	hub := realtime.NewHub()

	var backbone *realtime.Backbone
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		b, err := realtime.ConnectBackbone(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Warn("Broadcast backbone unavailable, running single-instance", "error", err)
		} else {
			backbone = b
			backbone.Start(hub)
			hub.AttachRelay(backbone)
		}
	} else {
		slog.Warn("REDIS_URL not set, running single-instance; replies will not reach connections on other instances")
	}

	// ─── Stores ──────────────────────────────────────────────────────────
	conversationStore := store.NewConversationStore(db)
	profileStore := store.NewProfileStore(db)

	// ─── Services ────────────────────────────────────────────────────────
	assembler := services.NewContextAssembler(conversationStore, profileStore,
		cfg.StalenessWindow, cfg.HistoryLimit, cfg.CheckInWindow)
	completionClient := services.NewCompletionClient(cfg)
	committer := services.NewTurnCommitter(conversationStore)
	chatService := services.NewChatService(assembler, completionClient, committer, cfg.TurnTimeout)

	// ─── Handlers ────────────────────────────────────────────────────────
	systemHandler := handlers.NewSystemHandler(backbone != nil)
	chatHandler := handlers.NewChatHandler(cfg, hub, chatService)
	conversationHandler := handlers.NewConversationHandler(conversationStore, hub, cfg.HistoryLimit)

	// ─── Fiber App ──────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "solace v" + handlers.Version,
		ServerHeader: "solace",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	// Request logger
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if c.Path() == "/api/health" {
			return err
		}
		slog.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		)
		return err
	})

	// ─── Routes ─────────────────────────────────────────────────────────
	routes.Setup(app, cfg, systemHandler, chatHandler, conversationHandler)

	// ─── Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Solace...")

		if err := app.Shutdown(); err != nil {
			slog.Error("Fiber shutdown error", "error", err)
		}

		if backbone != nil {
			if err := backbone.Close(); err != nil {
				slog.Error("Backbone close error", "error", err)
			}
		}

		if sqlDB, err := database.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// ─── Start ──────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	slog.Info("Solace listening", "addr", listenAddr, "multi_instance", backbone != nil)

	if err := app.Listen(listenAddr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
