package handlers

import (
	"encoding/gob"
	"net/http"
	"unicode/utf8"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	flashSession = "provas_flash"
	flashMaxAge  = 60
	// Longest engine or storage detail appended to a flash message, in bytes
	maxFlashDetail = 300
)

// Flash is a one-shot notification shown on the next rendered page
type Flash struct {
	Category string // Bootstrap alert style: success, danger, warning, info
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// NewFlashStore keeps pending flashes in a signed cookie
func NewFlashStore(key []byte, secure bool) sessions.Store {
	store := cookie.NewStore(key)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   flashMaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func setFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(Flash{Category: category, Message: message})
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Str("category", category).Msg("failed to store flash message")
	}
}

// popFlash returns and clears the oldest pending flash, if any
func popFlash(c *gin.Context) *Flash {
	session := sessions.Default(c)
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to clear flash messages")
	}
	f, ok := flashes[0].(Flash)
	if !ok {
		return nil
	}
	return &f
}

// redirectWithFlash is the error path shared by the page handlers
func redirectWithFlash(c *gin.Context, location, category, message string) {
	setFlash(c, category, message)
	c.Redirect(http.StatusFound, location)
}

// flashDetail shortens an error for display, keeping whole runes
func flashDetail(err error) string {
	s := err.Error()
	if len(s) <= maxFlashDetail {
		return s
	}
	cut := maxFlashDetail
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
