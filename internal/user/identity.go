package user

import (
	"net/http"

	"github.com/DirkDigglerz/waracle-cat-project/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// CookieName matches the key the browser client historically used for
	// its persisted user id.
	CookieName = "cat_user_id"
	// CookieMaxAge keeps the identity for a year
	CookieMaxAge = 365 * 24 * 60 * 60
	// ContextKey is where the middleware stores the id in the gin context
	ContextKey = "userID"
)

// EnsureIdentity guarantees every request carries a per-browser random user
// id: it reads the identity cookie, replaces it when missing or malformed,
// and exposes the id to handlers. The id is the sub_id correlation key for
// every remote call.
func EnsureIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := c.Cookie(CookieName)

		if err != nil || !IsValidID(userID) {
			if err != nil && err != http.ErrNoCookie {
				logger.WithError(err).Warn("Failed to read identity cookie")
			} else if err == nil {
				logger.WithFields(logrus.Fields{"cookie": userID}).Warn("Replacing malformed identity cookie")
			}
			userID = uuid.NewString()
			c.SetCookie(CookieName, userID, CookieMaxAge, "/", "", false, true)
		}

		c.Set(ContextKey, userID)
		c.Next()
	}
}

// FromContext returns the user id set by EnsureIdentity
func FromContext(c *gin.Context) string {
	return c.GetString(ContextKey)
}

// IsValidID reports whether the value is a well-formed identity
func IsValidID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
