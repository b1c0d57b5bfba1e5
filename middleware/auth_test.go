package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Govind-619/Esdukas/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(auth gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/secure", auth, func(c *gin.Context) {
		userID, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	return r
}

func doRequest(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSharedSecretAuth(t *testing.T) {
	r := newAuthRouter(SharedSecretAuth("sneaky-bear-42", ""))

	assert.Equal(t, http.StatusOK, doRequest(r, "Bearer sneaky-bear-42").Code)

	for _, header := range []string{"", "Bearer wrong", "sneaky-bear-42", "Basic sneaky-bear-42", "Bearer "} {
		w := doRequest(r, header)
		assert.Equal(t, http.StatusForbidden, w.Code, header)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	}
}

func TestSharedSecretAuth_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rotated-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	r := newAuthRouter(SharedSecretAuth("ignored", string(hash)))

	assert.Equal(t, http.StatusOK, doRequest(r, "Bearer rotated-secret").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer ignored").Code)
}

func TestSharedSecretAuth_EmptySecretRejectsAll(t *testing.T) {
	r := newAuthRouter(SharedSecretAuth("", ""))
	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer anything").Code)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestIdentityAuth(t *testing.T) {
	r := newAuthRouter(IdentityAuth(NewJWTVerifier("jwt-secret", "esdukas")))

	valid := signToken(t, "jwt-secret", jwt.MapClaims{
		"user_id": float64(42),
		"iss":     "esdukas",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	w := doRequest(r, "Bearer "+valid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"42"}`, w.Body.String())

	rejected := map[string]string{
		"wrong secret": signToken(t, "other", jwt.MapClaims{"user_id": "u1", "iss": "esdukas"}),
		"wrong issuer": signToken(t, "jwt-secret", jwt.MapClaims{"user_id": "u1", "iss": "someone"}),
		"expired":      signToken(t, "jwt-secret", jwt.MapClaims{"user_id": "u1", "iss": "esdukas", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no user":      signToken(t, "jwt-secret", jwt.MapClaims{"iss": "esdukas"}),
		"garbage":      "not-a-jwt",
	}
	for name, token := range rejected {
		assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer "+token).Code, name)
	}
}

func TestJWTVerifier_SubjectFallback(t *testing.T) {
	claims, err := NewJWTVerifier("s", "").VerifyToken(context.Background(), signToken(t, "s", jwt.MapClaims{"sub": "user_9", "email": "a@b.com"}))
	require.NoError(t, err)
	assert.Equal(t, "user_9", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestAuthenticate(t *testing.T) {
	_, err := Authenticate(&config.Config{AuthMode: config.AuthModeShared, AuthSecret: "s"})
	assert.NoError(t, err)

	_, err = Authenticate(&config.Config{AuthMode: config.AuthModeIdentity})
	assert.Error(t, err)

	_, err = Authenticate(&config.Config{AuthMode: config.AuthModeIdentity, JWTSecret: "s"})
	assert.NoError(t, err)

	_, err = Authenticate(&config.Config{AuthMode: "both"})
	assert.Error(t, err)
}
