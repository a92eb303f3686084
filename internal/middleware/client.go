package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tubeclone/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "tubeclone-api"
	tokenAudience = "tubeclone-client"
)

// ErrInvalidClientToken is returned for any token that fails verification.
var ErrInvalidClientToken = errors.New("invalid client token")

// ClientTokens issues and verifies the signed tokens that identify a client
// (one browser in the original application).
type ClientTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewClientTokens creates a token issuer using an HMAC secret.
func NewClientTokens(secret string, ttl time.Duration) *ClientTokens {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &ClientTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for clientID.
func (t *ClientTokens) Issue(clientID string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub": clientID,
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(t.ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign client token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and expiry and returns the client id.
func (t *ClientTokens) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidClientToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidClientToken
	}
	if _, err := uuid.Parse(sub); err != nil {
		return "", ErrInvalidClientToken
	}
	return sub, nil
}

// ClientRequired returns middleware that resolves the caller's client id from
// a Bearer token (or the token query parameter for WebSocket upgrades) and
// stores it in c.Locals("clientID").
func ClientRequired(tokens *ClientTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid authorization header format"))
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Client token required"))
		}

		clientID, err := tokens.Verify(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired client token"))
		}

		c.Locals("clientID", clientID)
		c.SetUserContext(WithClientID(c.UserContext(), clientID))
		return c.Next()
	}
}

// ClientID returns the verified client id set by ClientRequired.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals("clientID").(string)
	return id
}
