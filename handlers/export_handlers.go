package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"provas-server-go/db"
	"provas-server-go/metrics"
	"provas-server-go/render"
)

// GeneratePDF handles GET /generate_pdf/:id
func (h *Handler) GeneratePDF(c *gin.Context) {
	id := c.Param("id")

	a, err := h.Store.Load(c.Request.Context(), id)
	if err != nil {
		metrics.PDFExports.WithLabelValues(metrics.ResultNotFound).Inc()
		if !errors.Is(err, db.ErrNotFound) {
			log.Error().Err(err).Str("id", id).Msg("failed to load assessment for export")
		}
		redirectWithFlash(c, "/dashboard", "danger", "Avaliação não encontrada")
		return
	}

	start := time.Now()
	pdf, err := h.Exporter.PDF(a)
	metrics.PDFRenderSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, render.ErrDependencyMissing) {
			metrics.PDFExports.WithLabelValues(metrics.ResultDependencyMissing).Inc()
			log.Error().Err(err).Str("id", id).Msg("pdf engine unavailable")
			redirectWithFlash(c, "/dashboard", "danger",
				"Erro ao gerar PDF: o programa wkhtmltopdf não foi encontrado no sistema. Instale o wkhtmltopdf e tente novamente. Erro: "+flashDetail(err))
			return
		}
		metrics.PDFExports.WithLabelValues(metrics.ResultError).Inc()
		log.Error().Err(err).Str("id", id).Msg("pdf export failed")
		redirectWithFlash(c, "/dashboard", "danger", "Erro inesperado ao gerar PDF: "+flashDetail(err))
		return
	}

	metrics.PDFExports.WithLabelValues(metrics.ResultSuccess).Inc()
	c.Header("Content-Disposition", attachment(render.FileName(a.Title)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
