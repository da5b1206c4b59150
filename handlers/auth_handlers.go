package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"provas-server-go/metrics"
	"provas-server-go/middlewares"
)

// Index handles GET /
func (h *Handler) Index(c *gin.Context) {
	if _, ok := middlewares.SessionUser(c, h.Sessions); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"title": "Entrar"})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if err := h.Verifier.Verify(username, password); err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultInvalid).Inc()
		log.Info().Str("username", username).Str("ip", c.ClientIP()).Msg("login rejected")
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{
			"title":    "Entrar",
			"username": username,
			"flash":    &Flash{Category: "danger", Message: "Credenciais inválidas"},
		})
		return
	}

	token, err := h.Sessions.Issue(username)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue session token")
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{
			"title": "Entrar",
			"flash": &Flash{Category: "danger", Message: "Não foi possível iniciar a sessão"},
		})
		return
	}

	metrics.LoginAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.SessionCookie, token, int(h.Sessions.TTL().Seconds()), "/", "", h.SecureCookie, true)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout handles GET /logout
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.SessionCookie, "", -1, "/", "", h.SecureCookie, true)
	c.Redirect(http.StatusFound, "/login")
}
