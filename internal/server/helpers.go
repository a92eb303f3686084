package server

import (
	"context"
	"errors"

	"tubeclone/internal/catalog"
	"tubeclone/internal/featureflags"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/session"
	"tubeclone/internal/storage"
	"tubeclone/internal/task"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// scope is the per-request view of one client: its storage namespace, its
// session and its library.
type scope struct {
	ctx      context.Context
	clientID string
	kv       storage.KV
	session  *session.Store
	library  *catalog.Library
}

func (sc *scope) close() { sc.session.Close() }

// clientContext returns the request context, with simulated latency removed
// when the client is rolled out of it.
func (s *Server) clientContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if !s.featureFlags.Enabled(featureflags.SimulatedLatency, middleware.ClientID(c)) {
		ctx = task.WithoutLatency(ctx)
	}
	return ctx
}

// openScope opens the caller's session from storage. On failure it writes
// a 500 response and returns errResponseWritten. Callers must close the scope.
func (s *Server) openScope(c *fiber.Ctx) (*scope, error) {
	ctx := s.clientContext(c)
	clientID := middleware.ClientID(c)
	kv := storage.Namespace(s.store, clientID)

	sess, err := session.Open(ctx, kv,
		session.WithDelay(s.config.SignInDelay),
		session.WithToaster(s.notifier.ForClient(clientID)),
	)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to open session", "error", err)
		_ = models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		return nil, errResponseWritten
	}
	return &scope{
		ctx:      ctx,
		clientID: clientID,
		kv:       kv,
		session:  sess,
		library:  catalog.NewLibrary(kv, sess),
	}, nil
}

// respondErr writes err with the status its code maps to.
func respondErr(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}
