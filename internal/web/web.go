// Package web holds the embedded HTML templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Templates parses every page template. Pages are addressed by file name,
// e.g. "login.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"fieldError": fieldError,
		"date":       formatDate,
	}).ParseFS(templateFS, "templates/*.html")
}

func fieldError(errs map[string]string, name string) string {
	return errs[name]
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
