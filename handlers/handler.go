package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"provas-server-go/metrics"
	"provas-server-go/middlewares"
	"provas-server-go/models"
)

// AssessmentStore is satisfied by *db.DocumentStore
type AssessmentStore interface {
	Load(ctx context.Context, id string) (*models.Assessment, error)
	Save(ctx context.Context, a *models.Assessment) (string, error)
	List(ctx context.Context) ([]models.Summary, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// PDFExporter is satisfied by *render.Exporter
type PDFExporter interface {
	PDF(a *models.Assessment) ([]byte, error)
}

// CredentialVerifier is satisfied by *auth.Verifier
type CredentialVerifier interface {
	Verify(username, password string) error
}

// SessionIssuer is satisfied by *auth.TokenIssuer
type SessionIssuer interface {
	Issue(username string) (string, error)
	Parse(token string) (string, error)
	TTL() time.Duration
}

// Handler holds the dependencies shared by every route
type Handler struct {
	Store        AssessmentStore
	Exporter     PDFExporter
	Verifier     CredentialVerifier
	Sessions     SessionIssuer
	Flashes      sessions.Store
	SecureCookie bool
}

// NewHandler creates a new Handler
func NewHandler(store AssessmentStore, exporter PDFExporter, verifier CredentialVerifier, tokens SessionIssuer, flashes sessions.Store) *Handler {
	return &Handler{
		Store:    store,
		Exporter: exporter,
		Verifier: verifier,
		Sessions: tokens,
		Flashes:  flashes,
	}
}

// RegisterRoutes wires every page and action onto the router
func RegisterRoutes(router *gin.Engine, h *Handler) {
	router.Use(sessions.Sessions(flashSession, h.Flashes))

	router.GET("/", h.Index)
	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/ping", PingHandler)
	router.GET("/metrics", metrics.Handler())

	authed := router.Group("/")
	authed.Use(middlewares.RequireSession(h.Sessions))
	{
		authed.GET("/dashboard", h.Dashboard)
		authed.GET("/dashboard/export", h.ExportDashboard)
		authed.GET("/create", h.Create)
		authed.GET("/edit/:id", h.Edit)
		authed.POST("/edit/:id", h.Save)
		authed.POST("/import/questions/:id", h.ImportQuestions)
		authed.GET("/delete/:id", h.Delete)
		authed.GET("/generate_pdf/:id", h.GeneratePDF)
	}
}

// render adds the pending flash and the current user to a page
func (h *Handler) render(c *gin.Context, code int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["flash"]; !ok {
		if f := popFlash(c); f != nil {
			data["flash"] = f
		}
	}
	data["user"] = middlewares.CurrentUser(c)
	c.HTML(code, page, data)
}

// PingHandler reports liveness
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
