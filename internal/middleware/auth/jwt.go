package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
)

// ConnectionHeader selects the connection a request acts on
const ConnectionHeader = "X-Connection-Id"

// Principal is the caller authenticated from the bearer token
type Principal struct {
	Subject      string `json:"subject"`
	ConnectionID string `json:"connection_id"`
	Role         string `json:"role"`
}

type contextKey string

const principalContextKey contextKey = "authenticated_principal"

// ConnectionLookup resolves the connection named by the request header
type ConnectionLookup interface {
	Get(id string) (*entity.Connection, error)
}

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret      string
	Logger      *zap.Logger
	Connections ConnectionLookup
	SkipPaths   []string
}

// JWTMiddleware validates HMAC bearer tokens and binds the request to a connection.
// A token carrying a connection_id claim may only act on that connection.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				config.Logger.Warn("Invalid JWT claims",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid token claims",
					"code":  "INVALID_CLAIMS",
				})
			}

			connectionID := c.Request().Header.Get(ConnectionHeader)
			if connectionID == "" {
				config.Logger.Warn("Missing connection header",
					zap.String("path", path))
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error": ConnectionHeader + " header required",
					"code":  "MISSING_CONNECTION_ID",
				})
			}

			if config.Connections != nil {
				if _, err := config.Connections.Get(connectionID); err != nil {
					config.Logger.Warn("Unknown connection",
						zap.String("connection_id", connectionID),
						zap.String("path", path))
					return c.JSON(http.StatusForbidden, echo.Map{
						"error": "Unknown connection",
						"code":  "UNKNOWN_CONNECTION",
					})
				}
			}

			if allowed, _ := claims["connection_id"].(string); allowed != "" && allowed != connectionID {
				config.Logger.Warn("Token not valid for connection",
					zap.String("connection_id", connectionID),
					zap.String("token_connection_id", allowed))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Token is not valid for this connection",
					"code":  "CONNECTION_ACCESS_DENIED",
				})
			}

			subject, _ := claims.GetSubject()
			role, _ := claims["role"].(string)
			principal := &Principal{
				Subject:      subject,
				ConnectionID: connectionID,
				Role:         role,
			}

			ctx := context.WithValue(c.Request().Context(), principalContextKey, principal)
			ctx, _ = logger.WithConnectionID(ctx, config.Logger, connectionID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("connection_id", connectionID)

			config.Logger.Debug("Request authenticated",
				zap.String("subject", subject),
				zap.String("connection_id", connectionID),
				zap.String("path", path))

			return next(c)
		}
	}
}

// GetPrincipal extracts the authenticated caller from the request context
func GetPrincipal(c echo.Context) (*Principal, error) {
	principal, ok := c.Request().Context().Value(principalContextKey).(*Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("no authenticated principal found in context")
	}
	return principal, nil
}

// RequireAuth returns the principal, or an HTTP error the handler should return as is
func RequireAuth(c echo.Context) (*Principal, error) {
	principal, err := GetPrincipal(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}
	return principal, nil
}

// GetConnectionID returns the connection the request is bound to
func GetConnectionID(c echo.Context) (string, error) {
	principal, err := GetPrincipal(c)
	if err != nil {
		return "", err
	}
	return principal.ConnectionID, nil
}
