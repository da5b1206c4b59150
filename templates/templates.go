// Package templates holds the embedded HTML views served by the handlers.
package templates

import (
	"embed"
	"encoding/json"
	"html/template"

	"provas-server-go/render"
)

//go:embed pages/*.html
var pages embed.FS

// Load parses every page together so they can share the layout blocks
func Load() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"toJSON": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
		"imageURL": render.ImageURL,
	}).ParseFS(pages, "pages/*.html")
}
