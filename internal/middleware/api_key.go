package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// ApikeyPrefix prefix the bank gateway puts in front of the webhook key
const ApikeyPrefix = "Apikey "

// WebhookAuth guards the bank webhook endpoint with a static API key.
// The gateway sends "Authorization: Apikey <key>".
func WebhookAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if !strings.HasPrefix(authHeader, ApikeyPrefix) {
			utils.Error(c, utils.CodeUnauthorized, "Missing API key")
			c.Abort()
			return
		}

		key := strings.TrimPrefix(authHeader, ApikeyPrefix)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			log.WithFields(map[string]interface{}{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			}).Warn("Webhook rejected, bad API key")
			utils.Error(c, utils.CodeUnauthorized, "Invalid API key")
			c.Abort()
			return
		}

		c.Next()
	}
}
