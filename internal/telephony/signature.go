package telephony

import (
	"net/http"
	"net/url"

	"call-router/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const headerTwilioSignature = "X-Twilio-Signature"

// RequireTwilioSignature verifies X-Twilio-Signature over the public request URL
// and the POST parameters. An empty authToken disables verification.
func RequireTwilioSignature(authToken string, base *url.URL) gin.HandlerFunc {
	if authToken == "" {
		return func(c *gin.Context) { c.Next() }
	}
	validator := client.NewRequestValidator(authToken)

	return func(c *gin.Context) {
		log := logger.FromGin(c)

		u, err := RequestURL(c.Request, base)
		if err != nil {
			log.Warn("twilio signature check: bad request url", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request url"})
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			log.Warn("twilio signature check: form parse failed", "err", err)
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		sig := c.GetHeader(headerTwilioSignature)
		if sig == "" || !validator.Validate(u.String(), params, sig) {
			log.Warn("twilio signature rejected", "url", u.String(), "call_sid", params["CallSid"])
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
