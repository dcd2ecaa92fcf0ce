package auth

import (
	"net/http"
	"strings"

	"hivegames/backend/internal/config"
	"hivegames/backend/internal/database"
	"hivegames/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware gates the admin ingestion endpoints. The bearer token must
// either equal the configured static admin secret, or be a session token
// belonging to a user with the admin flag set.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		bearer := strings.TrimPrefix(authHeader, "Bearer ")

		if config.AppConfig.AdminToken != "" && bearer == config.AppConfig.AdminToken {
			c.Next()
			return
		}

		userID, ok := userIDFromHeader(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
