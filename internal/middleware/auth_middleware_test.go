package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

var testSecret = []byte("test-jwt-secret")

func makeToken(t *testing.T, userID string, isAdmin bool, expires time.Time) string {
	t.Helper()
	claims := TokenClaims{
		UserEmail: "user@example.com",
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	mw := NewJWTMiddleware(log, &DefaultTokenValidator{Secret: testSecret})

	router := gin.New()
	router.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		userID, _ := c.Get(string(ContextUserIDKey))
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	router.GET("/admin", mw.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doRequest(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRequireAuth - Проверяет базовую аутентификацию по JWT
func TestRequireAuth(t *testing.T) {
	router := newAuthTestRouter()
	userID := uuid.New().String()

	// 1. Без токена - 401
	w := doRequest(router, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 2. С валидным токеном - 200 и userID в контексте
	token := makeToken(t, userID, false, time.Now().Add(time.Hour))
	w = doRequest(router, "/protected", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID)

	// 3. Просроченный токен - 401
	expired := makeToken(t, userID, false, time.Now().Add(-time.Hour))
	w = doRequest(router, "/protected", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 4. Токен на другом секрете - 401
	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	w = doRequest(router, "/protected", forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRequireAdmin - Проверяет админский доступ по флагу в токене
func TestRequireAdmin(t *testing.T) {
	router := newAuthTestRouter()
	userID := uuid.New().String()

	// 1. Обычный пользователь - 403
	token := makeToken(t, userID, false, time.Now().Add(time.Hour))
	w := doRequest(router, "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 2. Администратор - 200
	adminToken := makeToken(t, userID, true, time.Now().Add(time.Hour))
	w = doRequest(router, "/admin", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// 3. Без токена - 401, а не 403
	w = doRequest(router, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
