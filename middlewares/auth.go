package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"provas-server-go/auth"
)

const (
	SessionCookie = "session_token"
	usernameKey   = "username"
)

// SessionParser is satisfied by *auth.TokenIssuer
type SessionParser interface {
	Parse(token string) (string, error)
}

// RequireSession lets the request through only with a valid session cookie and stores the
// username in the context; otherwise it redirects to the login page.
func RequireSession(parser SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := SessionUser(c, parser)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(usernameKey, username)
		c.Next()
	}
}

// SessionUser validates the session cookie without aborting the request
func SessionUser(c *gin.Context, parser SessionParser) (string, bool) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return "", false
	}
	username, err := parser.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			log.Debug().Msg("session expired")
		}
		return "", false
	}
	return username, true
}

// CurrentUser returns the username set by RequireSession
func CurrentUser(c *gin.Context) string {
	return c.GetString(usernameKey)
}
