package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"provas-server-go/models"
)

// ErrDependencyMissing means the HTML-to-PDF engine or one of its native libraries is unavailable
var ErrDependencyMissing = errors.New("pdf renderer dependency missing")

//go:embed templates/print.html
var templateFS embed.FS

// Converter turns a complete HTML page into PDF bytes
type Converter interface {
	Convert(html []byte) ([]byte, error)
}

// Exporter renders assessments to print HTML and hands the page to a Converter
type Exporter struct {
	tmpl *template.Template
	conv Converter
}

// NewExporter parses the embedded print template
func NewExporter(conv Converter) (*Exporter, error) {
	tmpl, err := template.New("print.html").Funcs(funcs).ParseFS(templateFS, "templates/print.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse print template: %w", err)
	}
	return &Exporter{tmpl: tmpl, conv: conv}, nil
}

// HTML renders the print view of the assessment
func (e *Exporter) HTML(a *models.Assessment) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, a); err != nil {
		return nil, fmt.Errorf("failed to render print view: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders the assessment and converts it
func (e *Exporter) PDF(a *models.Assessment) ([]byte, error) {
	page, err := e.HTML(a)
	if err != nil {
		return nil, err
	}
	return e.conv.Convert(page)
}

// FileName is the download name for an assessment titled title
func FileName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "download"
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r == ':' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, title)
	return "prova_" + clean + ".pdf"
}

// ImageURL passes data:image URIs and http(s) links, which html/template would otherwise filter.
// Anything else becomes empty.
func ImageURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return template.URL(s)
	}
	return ""
}

var funcs = template.FuncMap{
	"letter": func(i int) string {
		return string(rune('A' + i))
	},
	"inc": func(i int) int { return i + 1 },
	"lines": func(n int) []struct{} {
		return make([]struct{}, n)
	},
	// Question and essay text come from the authenticated user's rich text editor
	"trusted": func(s string) template.HTML {
		return template.HTML(s)
	},
	"imageURL": ImageURL,
	"isChoice":     func(t models.QuestionType) bool { return t == models.QuestionMultipleChoice },
	"isTrueFalse":  func(t models.QuestionType) bool { return t == models.QuestionTrueFalse },
	"isDiscursive": func(t models.QuestionType) bool { return t == models.QuestionDiscursive },
}
