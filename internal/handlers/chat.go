package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ekinacar/solace/internal/config"
	"github.com/ekinacar/solace/internal/middleware"
	"github.com/ekinacar/solace/internal/realtime"
	"github.com/ekinacar/solace/internal/services"
	"github.com/ekinacar/solace/pkg/apperrors"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TurnRunner is the orchestration pipeline behind the realtime boundary.
type TurnRunner interface {
	Send(ctx context.Context, userID uuid.UUID, text string) (*services.TurnResult, error)
}

type ChatHandler struct {
	cfg   *config.Config
	hub   *realtime.Hub
	chats TurnRunner
}

func NewChatHandler(cfg *config.Config, hub *realtime.Hub, chats TurnRunner) *ChatHandler {
	return &ChatHandler{cfg: cfg, hub: hub, chats: chats}
}

// UpgradeCheck is middleware that checks if the request is a websocket upgrade
func (h *ChatHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

type inboundEvent struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// HandleSocket runs one realtime connection from handshake to teardown.
// Connection lifecycle: identity is established once from the handshake,
// the connection joins its user's group for good, and membership is torn
// down automatically on disconnect.
func (h *ChatHandler) HandleSocket() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, err := h.handshakeIdentity(c)
		if err != nil {
			frame, _ := json.Marshal(realtime.ErrorEvent(apperrors.MessageOf(err)))
			c.WriteMessage(websocket.TextMessage, frame)
			return
		}

		client := h.hub.Join(userID, c)
		defer h.hub.Leave(client)

		// Cancelled when the read loop exits, so an in-flight turn stops
		// waiting on delivery once the client is gone. The pipeline still
		// commits server-side.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client.Send(realtime.ConnectedEvent(userID))

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}

			var in inboundEvent
			if err := json.Unmarshal(raw, &in); err != nil {
				client.Send(realtime.ErrorEvent("malformed event"))
				continue
			}

			switch in.Type {
			case "sendMessage":
				h.handleSendMessage(ctx, client, in)
			default:
				client.Send(realtime.ErrorEvent(apperrors.MessageOf(apperrors.ErrUnknownEvent)))
			}
		}
	})
}

// handshakeIdentity resolves the connection's identity. With a JWT secret
// configured the handshake must carry a valid token; otherwise the raw
// user_id query param is trusted (the transport sits behind the auth
// collaborator in that deployment).
func (h *ChatHandler) handshakeIdentity(c *websocket.Conn) (uuid.UUID, error) {
	if h.cfg.JWTSecret != "" {
		token := c.Query("token")
		if token == "" {
			return uuid.Nil, apperrors.ErrMissingIdentity
		}
		userID, err := middleware.ParseUserID(token, h.cfg.JWTSecret)
		if err != nil {
			return uuid.Nil, apperrors.ErrMissingIdentity
		}
		return userID, nil
	}

	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrMissingIdentity
	}
	return userID, nil
}

func (h *ChatHandler) handleSendMessage(ctx context.Context, client *realtime.Client, in inboundEvent) {
	// The declared sender must be the authenticated identity. Rejected, not
	// silently dropped; the connection stays open.
	declared, err := uuid.Parse(in.UserID)
	if err != nil || declared != client.UserID {
		slog.Warn("sender mismatch on send", "connection_user", client.UserID, "declared", in.UserID)
		client.Send(realtime.ErrorEvent(apperrors.MessageOf(apperrors.ErrSenderMismatch)))
		return
	}

	if strings.TrimSpace(in.Message) == "" {
		client.Send(realtime.ErrorEvent(apperrors.MessageOf(apperrors.ErrEmptyMessage)))
		return
	}

	h.hub.Broadcast(ctx, client.UserID, realtime.TypingEvent(true))
	// The client must never be left with a stuck typing indicator.
	defer h.hub.Broadcast(context.WithoutCancel(ctx), client.UserID, realtime.TypingEvent(false))

	result, err := h.chats.Send(ctx, client.UserID, in.Message)
	if err != nil {
		slog.Error("turn failed", "user_id", client.UserID, "code", apperrors.CodeOf(err), "error", err)
		client.Send(realtime.ErrorEvent(apperrors.MessageOf(err)))
		return
	}

	h.hub.Broadcast(ctx, client.UserID, realtime.MessageResponseEvent(result))
}
