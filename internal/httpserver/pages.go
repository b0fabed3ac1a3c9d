package httpserver

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/auth"
	"jobboard/internal/identity"
)

type page struct {
	path  string
	title string
	roles []auth.Role
}

var pages = []page{
	{path: identity.DestHome.Path(), title: "Find your next role"},
	{path: "/login", title: "Sign in"},
	{path: identity.DestRegister.Path(), title: "Create an account"},
	{path: identity.DestAdminDashboard.Path(), title: "Admin dashboard", roles: []auth.Role{auth.RoleAdmin}},
	{path: identity.DestEmployerDashboard.Path(), title: "Employer dashboard", roles: []auth.Role{auth.RoleEmployer}},
	{path: identity.DestEmployeeDashboard.Path(), title: "Employee dashboard", roles: []auth.Role{auth.RoleEmployee}},
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body data-identity-phase="{{.Phase}}">
<h1>{{.Title}}</h1>
</body>
</html>
`))

func renderPage(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			Title string
			Phase string
		}{Title: title}
		if o, ok := identity.OutcomeFromContext(r.Context()); ok {
			data.Phase = string(o.State)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = pageTmpl.Execute(w, data)
	}
}

// mountPages serves placeholder documents for every destination. Dashboards
// require the matching role; entry paths run the server phase first.
func mountPages(r *gin.Engine, d Deps) {
	entry := make(map[string]struct{}, len(d.EntryPaths))
	for _, p := range d.EntryPaths {
		entry[p] = struct{}{}
	}
	for _, p := range pages {
		var h http.Handler = renderPage(p.title)
		if len(p.roles) > 0 {
			h = auth.Middleware(d.Auth)(auth.RequireRole(renderPage(p.title), p.roles...))
		}
		if _, ok := entry[p.path]; ok && d.ServerPhase != nil {
			h = d.ServerPhase.Middleware(h)
			delete(entry, p.path)
		}
		r.GET(p.path, gin.WrapH(h))
		r.HEAD(p.path, gin.WrapH(h))
	}
	for p := range entry {
		d.Logger.Warn("entry path has no page", "path", p)
	}
}
