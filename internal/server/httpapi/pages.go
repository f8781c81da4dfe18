package httpapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const pageStyle = `body{font-family:Georgia,serif;background:#faf7f0;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}
.card{background:#fff;border:1px solid #e7e0d4;border-radius:16px;padding:40px 48px;text-align:center;max-width:400px}
h2{margin:0 0 12px;font-size:22px}
.ok h2{color:#166534}.ok p{background:#f0fdf4}
.error h2{color:#991b1b}.error p{background:#fef2f2}
p{color:#44403c;font-size:14px;margin:0 0 16px;line-height:1.6;padding:12px 16px;border-radius:8px}
a{color:#b89a5c;font-size:13px}
input{display:block;width:100%;margin:0 0 12px;padding:8px;box-sizing:border-box}
button{background:#b89a5c;color:#fff;border:0;border-radius:8px;padding:10px 20px}`

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} - Memorial Board</title><style>` + pageStyle + `</style></head>
<body><div class="card {{.Tone}}"><h2>{{.Title}}</h2><p>{{.Message}}</p>{{if .Dashboard}}<a href="/admin">Go to admin dashboard</a>{{end}}</div></body>
</html>`))

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Sign in - Memorial Board</title><style>` + pageStyle + `</style></head>
<body><div class="card"><h2>Approver sign in</h2>
{{if .}}<p>{{.}}</p>{{end}}
<form method="post" action="/admin/login">
<input type="email" name="email" placeholder="E-mail" autocomplete="username" required>
<input type="password" name="password" placeholder="Password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
</form></div></body>
</html>`))

type resultPage struct {
	Title     string
	Message   string
	Tone      string
	Dashboard bool
}

func (s *Server) renderHTML(c *gin.Context, status int, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		s.logger.Error(c.Request.Context(), "render page", "template", t.Name(), "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) loginPage(c *gin.Context) {
	s.renderHTML(c, http.StatusOK, loginTemplate, "")
}
