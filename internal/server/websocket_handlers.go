package server

import (
	"context"

	"tubeclone/internal/middleware"
	"tubeclone/internal/notify"
	"tubeclone/internal/session"
	"tubeclone/internal/storage"
	"tubeclone/internal/view"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to the live view endpoint.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebSocketViewHandler serves the live view channel: navigate, action and
// session frames in; loading, results, not_found, state, toast and error out.
// @Summary Live view channel
// @Tags live
// @Security BearerAuth
// @Param token query string true "Client token"
// @Router /ws [get]
func (s *Server) WebSocketViewHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		clientID, _ := conn.Locals("clientID").(string)
		if clientID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, notify.Encode(notify.Message{
				Type: notify.TypeError, Payload: map[string]string{"error": "unauthorized"},
			}))
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(s.baseContext())
		defer cancel()
		ctx = middleware.WithClientID(ctx, clientID)

		kv := storage.Namespace(s.store, clientID)
		toaster := s.notifier.ForClient(clientID)
		sess, err := session.Open(ctx, kv,
			session.WithDelay(s.config.SignInDelay),
			session.WithToaster(toaster),
		)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "live view: failed to open session", "error", err)
			_ = conn.Close()
			return
		}
		defer sess.Close()

		client, err := s.hub.Register(clientID, conn)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "live view: register failed", "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, notify.Encode(notify.Message{
				Type: notify.TypeError, Payload: map[string]string{"error": err.Error()},
			}))
			_ = conn.Close()
			return
		}

		nav := view.NewNavigator(ctx, view.Deps{
			ClientID: clientID,
			KV:       kv,
			Catalog:  s.catalog,
			Session:  sess,
			Flags:    s.featureFlags,
			Toaster:  toaster,
		}, client)
		defer nav.Close()

		client.IncomingHandler = func(_ *notify.Client, message []byte) {
			nav.Handle(message)
		}

		middleware.Logger.InfoContext(ctx, "live view connected")
		go client.WritePump()
		client.ReadPump()
		middleware.Logger.InfoContext(ctx, "live view disconnected")
	})
}

// baseContext bounds work started by long-lived connections. It is
// cancelled on shutdown.
func (s *Server) baseContext() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}
