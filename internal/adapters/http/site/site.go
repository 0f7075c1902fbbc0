// Package site renders the prediction form and serves its static assets.
package site

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/index.html
var indexHTML string

//go:embed static
var staticFS embed.FS

var formTemplate = template.Must(template.New("index").Parse(indexHTML))

// FormPage is the data behind the prediction form. Form holds the values to
// redisplay; Prediction is set after a successful submit.
type FormPage struct {
	Prediction *float64
	Error      string
	Form       map[string]string
}

// RenderForm writes the form page with status.
func RenderForm(w http.ResponseWriter, status int, p FormPage) error {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, p); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// FS returns the embedded static assets.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
}
