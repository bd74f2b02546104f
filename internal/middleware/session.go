package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader carries the opaque token that owns anonymous carts and
// wishlists. Clients must echo it back on subsequent requests.
const SessionHeader = "X-Session-Token"

const sessionKey = "sessionToken"

// Session ensures every request carries a session token, minting one when
// the client has none (or sent something that is not a UUID). The token is
// always echoed in the response so the client can persist it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(token); err != nil {
			token = uuid.NewString()
		}
		c.Set(sessionKey, token)
		c.Header(SessionHeader, token)
		c.Next()
	}
}

func GetSessionToken(c *gin.Context) string {
	token, _ := c.Get(sessionKey)
	s, _ := token.(string)
	return s
}
