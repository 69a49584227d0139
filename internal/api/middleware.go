package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/ratelimiter"
)

// AuthMiddleware 创建一个 Gin 中间件，用于验证 JWT 并提取用户身份与订阅等级。
// 令牌的签发由外部系统负责，这里只做校验。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权标头"})
			c.Abort()
			return
		}

		// 我们期望的格式是 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "授权标头格式不正确"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// 确保 token 的签名方法是我们期望的
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("非预期的签名方法")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的 token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的 token"})
			c.Abort()
			return
		}

		// sub 可能是字符串或数字，统一转成字符串存入上下文。
		switch sub := claims["sub"].(type) {
		case string:
			c.Set("userID", sub)
		case float64:
			c.Set("userID", fmt.Sprintf("%.0f", sub))
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的 token claims"})
			c.Abort()
			return
		}

		// 订阅等级缺失或不合法时降级为免费档，而不是拒绝请求。
		tier := models.TierFree
		if t, ok := claims["tier"].(string); ok {
			switch models.SubscriptionTier(t) {
			case models.TierBasic, models.TierPremium:
				tier = models.SubscriptionTier(t)
			}
		}
		c.Set("tier", tier)

		c.Next()
	}
}

// RateLimitMiddleware 基于全局限流器拒绝超额请求。limiter 为 nil 时即关闭限流。
func RateLimitMiddleware(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// userIdentity 从上下文取出认证中间件写入的身份信息。
func userIdentity(c *gin.Context) (string, models.SubscriptionTier) {
	userID := c.GetString("userID")
	tier := models.TierFree
	if v, exists := c.Get("tier"); exists {
		if t, ok := v.(models.SubscriptionTier); ok {
			tier = t
		}
	}
	return userID, tier
}
