package v1handler

import (
	"html/template"
	"net/http"
	"strconv"
	"time"
)

var blockedTmpl = template.Must(template.New("blocked").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Dangerous website blocked</title>
<style>
body{margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;background:#b71c1c;color:#fff;font-family:sans-serif;text-align:center}
main{max-width:640px;padding:32px}
.url{word-break:break-all;opacity:.85}
</style>
</head>
<body>
<main>
<h1>Dangerous website blocked</h1>
<p>The page you tried to open was identified as {{.Reason}} and has been blocked to protect you.</p>
{{- if .URL}}
<p class="url">{{.URL}}</p>
{{- end}}
{{- if .At}}
<p>Blocked at {{.At}}</p>
{{- end}}
<p>Close this tab or go back to a page you trust.</p>
</main>
</body>
</html>
`))

// GetBlockedPage renders the blocking page navigations are redirected to.
func (h *Handler) GetBlockedPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := struct {
		URL    string
		Reason string
		At     string
	}{URL: q.Get("url"), Reason: q.Get("reason")}
	if data.Reason == "" {
		data.Reason = "malicious"
	}
	if ms, err := strconv.ParseInt(q.Get("timestamp"), 10, 64); err == nil && ms > 0 {
		data.At = time.UnixMilli(ms).UTC().Format(time.RFC1123)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := blockedTmpl.Execute(w, data); err != nil {
		h.writeError(w, r, err)
	}
}
