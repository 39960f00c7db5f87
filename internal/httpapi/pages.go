package httpapi

import "net/http"

// Minimal server-rendered shells for the admin pages. The dashboard UI is a
// separately deployed static bundle; these exist so the route guard and the
// login redirect have real pages to land on.

const loginPageHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin Login | Kosmic Apps</title></head>
<body>
<h1>Admin Login</h1>
<p>Request a one-time access key via POST /api/admin/send-access-key,
then sign in via POST /api/admin/login.</p>
</body>
</html>
`

const adminPageHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin Dashboard | Kosmic Apps</title></head>
<body>
<h1>Admin Dashboard</h1>
<nav>
  <a href="/api/admin/signups">Signups</a>
  <a href="/api/admin/form-analytics">Form analytics</a>
</nav>
</body>
</html>
`

func (a *API) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	// An already authenticated admin skips the login form.
	if _, err := sessionFromRequest(r); err == nil {
		http.Redirect(w, r, "/admin/", http.StatusFound)
		return
	}
	writeHTML(w, loginPageHTML)
}

func (a *API) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeHTML(w, adminPageHTML)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
