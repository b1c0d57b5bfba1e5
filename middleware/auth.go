package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Govind-619/Esdukas/config"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Context keys set by IdentityAuth
const (
	UserIDKey = "userID"
	ClaimsKey = "claims"
)

// unauthorizedMessage is the only auth failure body clients see
const unauthorizedMessage = "Unauthorized"

// Claims is the verified identity behind a request
type Claims struct {
	UserID string
	Email  string
}

// TokenVerifier verifies an end-user identity token
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// JWTVerifier verifies HS256 tokens
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier returns a verifier for secret. An empty issuer is not checked.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) VerifyToken(_ context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token validation failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, errors.New("unexpected token issuer")
	}

	userID := claimString(claims, "user_id")
	if userID == "" {
		userID = claimString(claims, "sub")
	}
	if userID == "" {
		return nil, errors.New("token carries no user")
	}
	return &Claims{UserID: userID, Email: claimString(claims, "email")}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// SharedSecretAuth accepts requests bearing the shared secret. When hash is
// set the secret is checked against the bcrypt hash instead.
func SharedSecretAuth(secret, hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok || !sharedSecretMatches(token, secret, hash) {
			utils.LogDebug("Rejected shared secret on %s", c.Request.URL.Path)
			utils.Forbidden(c, unauthorizedMessage)
			return
		}
		c.Next()
	}
}

func sharedSecretMatches(token, secret, hash string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// IdentityAuth accepts requests bearing a valid identity token and stores
// the caller's claims on the context.
func IdentityAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.Forbidden(c, unauthorizedMessage)
			return
		}
		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			utils.LogDebug("Identity token rejected: %v", err)
			utils.Forbidden(c, unauthorizedMessage)
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Authenticate returns the single auth policy selected by cfg.AuthMode
func Authenticate(cfg *config.Config) (gin.HandlerFunc, error) {
	switch cfg.AuthMode {
	case config.AuthModeShared, "":
		return SharedSecretAuth(cfg.AuthSecret, cfg.AuthSecretHash), nil
	case config.AuthModeIdentity:
		if cfg.JWTSecret == "" {
			return nil, errors.New("identity auth requires JWT_SECRET")
		}
		return IdentityAuth(NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

// CurrentUserID returns the verified user id, if identity auth ran
func CurrentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
