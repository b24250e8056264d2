package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/safar/go-marketplace/internal/models"
	"go.uber.org/zap"
)

const (
	ClaimsKey     = "claims"
	VendorIDKey   = "vendor_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// VendorResolver maps an authenticated user to the approved vendor acting
// for them.
type VendorResolver interface {
	VendorID(ctx context.Context, userID int64) (int64, error)
}

// Auth requires a valid bearer token and stores its claims on the context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.FromGin(c).Debug("token rejected", zap.Error(err))
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		reqLogger := logger.FromGin(c).With(zap.Int64("user_id", claims.UserID), zap.String("role", string(claims.Role)))
		c.Set(ClaimsKey, claims)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLogger))
		c.Next()
	}
}

// RequireRole lets the request through when allowed reports true for the
// caller's role.
func RequireRole(allowed func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !allowed(claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "role " + string(claims.Role) + " may not access this resource",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// RequireApprovedVendor resolves the caller's vendor id and stores it on the
// context for seller handlers.
func RequireApprovedVendor(resolver VendorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		vendorID, err := resolver.VendorID(c.Request.Context(), claims.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(VendorIDKey, vendorID)
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func VendorIDFrom(c *gin.Context) int64 {
	return c.GetInt64(VendorIDKey)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHORIZED"})
}
