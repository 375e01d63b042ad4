package routes

import (
	"github.com/ekinacar/solace/internal/config"
	"github.com/ekinacar/solace/internal/handlers"
	"github.com/ekinacar/solace/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	systemHandler *handlers.SystemHandler,
	chatHandler *handlers.ChatHandler,
	conversationHandler *handlers.ConversationHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)

	// Realtime (WebSocket) — identity comes from the handshake itself
	app.Use("/ws/chat", chatHandler.UpgradeCheck())
	app.Get("/ws/chat", chatHandler.HandleSocket())

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	api.Get("/chat/history", conversationHandler.History)
	api.Post("/chat/clear", conversationHandler.Clear)
	api.Get("/chat/presence/:userId", conversationHandler.Presence)
}
