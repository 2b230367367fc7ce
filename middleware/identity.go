package middleware

import (
	"context"
	"net/http"
	"strings"

	"folio/models"
	"folio/utils"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier checks HS256 tokens signed with the configured secret.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	return utils.ExtractIDFromToken(v.Secret, token)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	Client *auth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	t, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return t.UID, nil
}

// IdentityMiddleware attaches the caller's identity to the request. A missing
// or invalid token is not an error: the request proceeds as the default user,
// unauthenticated, and only sees read-only data.
func IdentityMiddleware(verifier TokenVerifier, defaultUserID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := models.Anonymous(defaultUserID)

		authHeader := c.GetHeader("Authorization")
		if verifier != nil && strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			userID, err := verifier.Verify(c.Request.Context(), tokenString)
			if err != nil {
				zap.L().Debug("ignoring invalid bearer token", zap.Error(err))
			} else {
				id = models.Identity{UserID: userID, Authenticated: true}
			}
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAuth rejects requests that did not present a valid token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity set by IdentityMiddleware. Requests that
// bypassed it are treated as anonymous with an empty user id.
func GetIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{}
}
