package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/coursebridge/migration-backend/internal/logger"
	"github.com/coursebridge/migration-backend/internal/utils"
)

// OperatorRole is the claim value required to drive a migration.
const OperatorRole = "operator"

// ContextKeyOperator carries the authenticated operator name through the
// gin context into the step request.
const ContextKeyOperator = "operator"

type OperatorClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger) *AuthMiddleware {
	middlewareLog := log.With("Middleware", "AuthMiddleware")
	secret := utils.GetEnv("JWT_SECRET", "", log)
	return &AuthMiddleware{log: middlewareLog, secret: []byte(secret)}
}

// RequireOperator admits only tokens carrying the operator role. Running
// a migration rewrites live data; nothing weaker gets through.
func (am *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		claims := &OperatorClaims{}
		parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != OperatorRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		operator := claims.Name
		if operator == "" {
			operator = claims.Subject
		}
		c.Set(ContextKeyOperator, operator)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}
