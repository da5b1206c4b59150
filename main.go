package main

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"provas-server-go/auth"
	"provas-server-go/config"
	"provas-server-go/db"
	"provas-server-go/handlers"
	"provas-server-go/logging"
	"provas-server-go/middlewares"
	"provas-server-go/render"
	"provas-server-go/templates"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	// Storage
	store, err := db.Open(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to open storage")
	}
	defer store.Close()

	// Authentication
	verifier, err := auth.NewVerifier(cfg.Auth.Username, cfg.Auth.Password, cfg.Auth.PasswordHash, bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up credentials")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("no jwt secret configured, sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.SessionTTL)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up sessions")
	}

	// PDF export
	exporter, err := render.NewExporter(render.NewWKHTMLToPDF(cfg.PDF.BinaryPath, cfg.PDF.DPI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load print template")
	}

	pages, err := templates.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load page templates")
	}

	flashKey := []byte(cfg.Auth.JWTSecret)
	if len(flashKey) == 0 {
		flashKey = make([]byte, 32)
		if _, err := rand.Read(flashKey); err != nil {
			log.Fatal().Err(err).Msg("failed to generate flash cookie key")
		}
	}
	flashes := handlers.NewFlashStore(flashKey, cfg.Auth.SecureCookie)

	h := handlers.NewHandler(store, exporter, verifier, tokens, flashes)
	h.SecureCookie = cfg.Auth.SecureCookie

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger())
	if cors := middlewares.CORS(cfg.CORS.AllowOrigins); cors != nil {
		router.Use(cors)
	}
	router.SetHTMLTemplate(pages)
	handlers.RegisterRoutes(router, h)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	log.Info().Str("addr", addr).Str("storage", cfg.Storage.Backend).Msg("starting server")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
