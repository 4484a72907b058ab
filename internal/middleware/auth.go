package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
	ctxToken  = "token"
)

// ErrMissingToken is returned when a token-based provider gets no token
var ErrMissingToken = errors.New("missing bearer token")

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Role   domain.Role
}

// AuthProvider turns a bearer token into an Identity
type AuthProvider interface {
	Authenticate(token string) (*Identity, error)
}

// TokenVerifyingAuth verifies HS256 access tokens
type TokenVerifyingAuth struct {
	jwtManager *jwt.Manager
}

// NewTokenVerifyingAuth creates a TokenVerifyingAuth
func NewTokenVerifyingAuth(jwtManager *jwt.Manager) *TokenVerifyingAuth {
	return &TokenVerifyingAuth{jwtManager: jwtManager}
}

func (a *TokenVerifyingAuth) Authenticate(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := a.jwtManager.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID, Role: domain.Role(claims.Role)}, nil
}

// FixedIdentityAuth authenticates every request as one configured user.
// Only meant for local development and tests.
type FixedIdentityAuth struct {
	identity Identity
}

// NewFixedIdentityAuth creates a FixedIdentityAuth
func NewFixedIdentityAuth(userID string, role domain.Role) *FixedIdentityAuth {
	return &FixedIdentityAuth{identity: Identity{UserID: userID, Role: role}}
}

func (a *FixedIdentityAuth) Authenticate(string) (*Identity, error) {
	id := a.identity
	return &id, nil
}

// Auth authenticates requests through provider. WebSocket upgrades may pass the token as ?token=.
func Auth(provider AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			common.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format", nil)
			c.Abort()
			return
		}

		identity, err := provider.Authenticate(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingToken):
				common.ErrorResponse(c, http.StatusUnauthorized, "Missing authorization header", nil)
			case errors.Is(err, jwt.ErrExpiredToken):
				common.ErrorResponse(c, http.StatusUnauthorized, "Token expired", err)
			default:
				common.ErrorResponse(c, http.StatusUnauthorized, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set(ctxUserID, identity.UserID)
		c.Set(ctxRole, identity.Role)
		c.Set(ctxToken, token)

		c.Next()
	}
}

// bearerToken returns the request token; ok is false only for a malformed header
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token"), true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUserRole extracts the caller's role from context
func GetUserRole(c *gin.Context) domain.Role {
	role, exists := c.Get(ctxRole)
	if !exists {
		return ""
	}
	if r, ok := role.(domain.Role); ok {
		return r
	}
	return ""
}

// GetToken returns the bearer token the caller authenticated with
func GetToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}
