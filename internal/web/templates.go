// ABOUTME: Template rendering for the podium pages
// ABOUTME: Loads templates from the embedded filesystem

package web

import (
	"html/template"
	"net/http"
)

type homeData struct {
	Title    string
	SiteName string
	Username string
}

type rootUserData struct {
	Title    string
	SiteName string
	Error    string
}

// renderHome renders the home page for logged-in and anonymous visitors alike.
func (h *Handler) renderHome(w http.ResponseWriter, siteName, username string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/index.html"))

	data := homeData{
		Title:    siteName,
		SiteName: siteName,
		Username: username,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render home page", "error", err)
	}
}

// renderRootUser renders the first-run root account creation form.
func (h *Handler) renderRootUser(w http.ResponseWriter, siteName, errorMsg string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/rootuser.html"))

	data := rootUserData{
		Title:    "Create Root User",
		SiteName: siteName,
		Error:    errorMsg,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render root user page", "error", err)
	}
}
