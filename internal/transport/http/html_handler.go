package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
)

// ServeDashboard serves the species explorer page. The page is a static
// shell; every number on it arrives later through the JSON API and the
// progress WebSocket.
func ServeDashboard(webDir string) http.HandlerFunc {
	index := filepath.Join(webDir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(index); err != nil {
			http.Error(w, "dashboard page not found", http.StatusNotFound)
			return
		}
		renderPage(w, index)
	}
}

// StaticAssets serves the dashboard's scripts and styles under /static/.
func StaticAssets(webDir string) http.Handler {
	fs := http.FileServer(http.Dir(filepath.Join(webDir, "static")))
	return http.StripPrefix("/static/", fs)
}

// renderPage parses the page on every request so template edits show up
// without a server restart. Security headers are set by the middleware
// stack.
func renderPage(w http.ResponseWriter, path string) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		http.Error(w, "error loading page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, nil); err != nil {
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}
