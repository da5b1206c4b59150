// Package metrics holds the prometheus collectors for assessment storage and export.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "provas"

// Result label values
const (
	ResultSuccess           = "success"
	ResultNotFound          = "not_found"
	ResultDependencyMissing = "dependency_missing"
	ResultError             = "error"
	ResultInvalid           = "invalid"
)

var (
	AssessmentsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assessments_saved_total",
		Help:      "Assessment save attempts by result.",
	}, []string{"result"})

	AssessmentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assessments_deleted_total",
		Help:      "Assessments removed from storage.",
	})

	PDFExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pdf_exports_total",
		Help:      "PDF export attempts by result.",
	}, []string{"result"})

	PDFRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pdf_render_seconds",
		Help:      "Time spent converting an assessment to PDF.",
		Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
	})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
)

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
