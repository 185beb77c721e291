package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте.
	ContextUserIDKey ContextKey = "userID"
	// ContextUserEmailKey ключ для email пользователя в контексте.
	ContextUserEmailKey ContextKey = "userEmail"
	// ContextIsAdminKey ключ для признака администратора в контексте.
	ContextIsAdminKey ContextKey = "isAdmin"

	authHeaderPrefix = "Bearer "
)

type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

type TokenClaims struct {
	UserEmail string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth проверяет JWT и кладет идентификатор пользователя в контекст.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// RequireAdmin проверяет JWT и требует признак администратора в токене.
func (m *JWTMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		if !claims.IsAdmin {
			m.log.Warnw("Non-admin access to admin endpoint", "path", c.Request.URL.Path, "userID", claims.Subject)
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:     "Admin access required",
				ErrorCode: http.StatusForbidden,
			}, http.StatusForbidden)
			c.Abort()
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

func (m *JWTMiddleware) authenticate(c *gin.Context) (*TokenClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		m.handleAuthError(c, "Missing authorization token")
		return nil, false
	}

	tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
	claims, err := m.validator.Validate(tokenString)
	if err != nil {
		m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
		return nil, false
	}

	if claims.Subject == "" {
		m.handleAuthError(c, "User ID (sub) missing in token")
		return nil, false
	}

	return claims, true
}

func (m *JWTMiddleware) setContext(c *gin.Context, claims *TokenClaims) {
	c.Set(string(ContextUserIDKey), claims.Subject)
	c.Set(string(ContextUserEmailKey), claims.UserEmail)
	c.Set(string(ContextIsAdminKey), claims.IsAdmin)
	m.log.Debugw("User authenticated via HTTP", "userID", claims.Subject)
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("HTTP Authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

// DefaultTokenValidator - реализация валидатора по умолчанию.
type DefaultTokenValidator struct {
	Secret []byte
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, errors.New("malformed token")
		} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		} else if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, errors.New("token expired")
		} else {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
