package handlers

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"provas-server-go/db"
	"provas-server-go/metrics"
	"provas-server-go/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- Dashboard Handlers ---

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	summaries, err := h.Store.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list assessments")
		h.render(c, http.StatusInternalServerError, "dashboard.html", gin.H{
			"title":       "Avaliações",
			"assessments": []models.Summary{},
			"flash":       &Flash{Category: "danger", Message: "Erro ao carregar as avaliações"},
		})
		return
	}
	sortSummaries(summaries)
	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"title":       "Avaliações",
		"assessments": summaries,
	})
}

// ExportDashboard handles GET /dashboard/export
func (h *Handler) ExportDashboard(c *gin.Context) {
	summaries, err := h.Store.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list assessments for export")
		redirectWithFlash(c, "/dashboard", "danger", "Erro ao exportar a planilha")
		return
	}
	sortSummaries(summaries)

	var buf bytes.Buffer
	if err := db.ExportSummariesToExcel(&buf, summaries); err != nil {
		log.Error().Err(err).Msg("failed to build spreadsheet")
		redirectWithFlash(c, "/dashboard", "danger", "Erro ao exportar a planilha")
		return
	}
	c.Header("Content-Disposition", attachment("avaliacoes.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// --- Assessment Handlers ---

// Create handles GET /create. The new document is only stored on its first save.
func (h *Handler) Create(c *gin.Context) {
	h.render(c, http.StatusOK, "editor.html", gin.H{
		"title":      "Nova avaliação",
		"assessment": models.NewAssessment(),
		"fonts":      models.Fonts,
		"mode":       "create",
	})
}

// Edit handles GET /edit/:id
func (h *Handler) Edit(c *gin.Context) {
	id := c.Param("id")
	a, err := h.Store.Load(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Error().Err(err).Str("id", id).Msg("failed to load assessment")
		}
		redirectWithFlash(c, "/dashboard", "danger", "Avaliação não encontrada")
		return
	}
	h.render(c, http.StatusOK, "editor.html", gin.H{
		"title":      a.Title,
		"assessment": a,
		"fonts":      models.Fonts,
		"mode":       "edit",
	})
}

// Save handles POST /edit/:id with the complete document as JSON
func (h *Handler) Save(c *gin.Context) {
	id := c.Param("id")

	var doc models.Assessment
	if err := c.ShouldBindJSON(&doc); err != nil {
		metrics.AssessmentsSaved.WithLabelValues(metrics.ResultInvalid).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body: " + err.Error()})
		return
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		metrics.AssessmentsSaved.WithLabelValues(metrics.ResultInvalid).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Document id does not match the URL"})
		return
	}

	savedID, err := h.Store.Save(c.Request.Context(), &doc)
	if err != nil {
		if errors.Is(err, db.ErrInvalidDocument) {
			metrics.AssessmentsSaved.WithLabelValues(metrics.ResultInvalid).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		metrics.AssessmentsSaved.WithLabelValues(metrics.ResultError).Inc()
		log.Error().Err(err).Str("id", id).Msg("failed to save assessment")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save assessment"})
		return
	}

	metrics.AssessmentsSaved.WithLabelValues(metrics.ResultSuccess).Inc()
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": savedID})
}

// ImportQuestions handles POST /import/questions/:id
func (h *Handler) ImportQuestions(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	a, err := h.Store.Load(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Assessment not found"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	log.Info().Str("file", header.Filename).Str("id", id).Msg("received question spreadsheet")

	questions, err := db.ImportQuestionsFromExcel(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Failed to import questions: " + err.Error()})
		return
	}

	a.Questions = append(a.Questions, questions...)
	if _, err := h.Store.Save(ctx, a); err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to save imported questions")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save assessment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "id": id, "imported": len(questions)})
}

// Delete handles GET /delete/:id. Deleting a missing record still reports success.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.Store.Delete(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to delete assessment")
		redirectWithFlash(c, "/dashboard", "danger", "Erro ao excluir a avaliação")
		return
	}
	if deleted {
		metrics.AssessmentsDeleted.Inc()
	}
	redirectWithFlash(c, "/dashboard", "success", "Avaliação excluída")
}

func sortSummaries(s []models.Summary) {
	sort.Slice(s, func(i, j int) bool {
		ti, tj := strings.ToLower(s[i].Title), strings.ToLower(s[j].Title)
		if ti != tj {
			return ti < tj
		}
		return s[i].ID < s[j].ID
	})
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
