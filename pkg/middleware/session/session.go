package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const contextKey = "session_id"

// Options configures the session cookie.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Middleware makes sure every request carries an anonymous session identifier
// held in a cookie. Staged registration data is keyed by this identifier.
func Middleware(opts Options) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "ceama_session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 48 * time.Hour
	}
	return func(c *gin.Context) {
		id, err := c.Cookie(opts.CookieName)
		if err != nil || !valid(id) {
			id = generateID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, id, int(opts.MaxAge.Seconds()), "/", "", opts.Secure, true)
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// Value returns the session ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func valid(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("%032x", time.Now().UnixNano())
}
