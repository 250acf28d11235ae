package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopmetrics/backend/internal/infrastructure/auth"
	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
)

const (
	// OrganizationIDKey is the gin context key holding the authenticated
	// organization's uuid.UUID.
	OrganizationIDKey = "organization_id"

	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// BearerAuth validates the Authorization bearer token and stores the
// authenticated organization id on the request context.
func BearerAuth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderKey)
		if header == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(header, bearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, "Missing token")
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			abortUnauthorized(c, "Token validation failed")
			return
		}

		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(OrganizationIDKey, orgID)
		c.Next()
	}
}

// OrganizationID returns the authenticated organization id from the
// context. The boolean is false when BearerAuth did not run.
func OrganizationID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(OrganizationIDKey)
	if !exists {
		return uuid.Nil, false
	}
	orgID, ok := value.(uuid.UUID)
	return orgID, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", message))
}
