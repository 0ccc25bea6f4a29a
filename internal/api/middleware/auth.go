package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"spinwheel/internal/api/jwt"
	"spinwheel/internal/wheelapi"
)

func RevokedKey(jti string) string {
	return fmt.Sprintf("jwt_revoked@%s", jti)
}

// Revoke blocks the token id until the token would have expired anyway.
func Revoke(c *gin.Context, rdb *redis.Client, claims *jwt.JWTClaim) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(c, RevokedKey(claims.ID), "1", ttl).Err()
}

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := c.MustGet("app").(*wheelapi.App)
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "jwt missing"})
			return
		}
		claims, err := app.Jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid jwt"})
			return
		}
		err = app.Rdb.Get(c, RevokedKey(claims.ID)).Err()
		if err == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "jwt revoked"})
			return
		}
		if !errors.Is(err, redis.Nil) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again."})
			return
		}
		c.Set("user_id", claims.UserId)
		c.Set("claims", claims)
		c.Next()
	}
}
