package middleware

import (
	"net/http"
	"strings"

	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the bearer token and extracts the owner UID.
// The token comes from the external identity provider; the subject claim is
// the opaque identifier every resource's owner chain is compared against.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.AuthAttemptsCounter.Inc()

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract and validate the token
		tokenString := parts[1]
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid bearer token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store identity in context for ownership checks
		c.Set("owner_uid", claims.Subject)
		c.Set("email", claims.Email)
		prometheus.AuthSuccessCounter.Inc()

		log.Info("Request authenticated",
			zap.String("owner_uid", claims.Subject))

		return next(c)
	}
}

// GetOwnerUIDFromContext retrieves the authenticated owner UID from the context.
// Returns "", false if the request is not authenticated.
func GetOwnerUIDFromContext(c echo.Context) (string, bool) {
	uid, ok := c.Get("owner_uid").(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}
