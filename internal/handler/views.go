package handler

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/service"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the embedded console views.
func Templates() *template.Template {
	return template.Must(template.New("console").Funcs(template.FuncMap{
		"serverID": func(id *int64) string {
			if id == nil {
				return "local"
			}
			return strconv.FormatInt(*id, 10)
		},
		"grades": func() []models.Grade { return models.Grades },
	}).ParseFS(templateFS, "templates/*.tmpl"))
}

// page is the data handed to every view.
type page struct {
	Title  string
	Nav    string
	Prefix string
	Notice string
	Error  string
	Fields map[string]string
	Data   interface{}
}

func (p *page) fail(err error) int {
	appErr := appErrors.FromError(err)
	p.Error = appErr.Message
	p.Fields = appErr.Fields
	return appErr.Status
}

func renderPage(c *gin.Context, status int, name string, p page) {
	c.Header("Cache-Control", "no-store")
	c.HTML(status, name, p)
}

// notice turns an operation result into the line shown above the table. The second value
// carries the backend failure, if any.
func notice(op string, outcome service.Outcome, remote error) (string, string) {
	var msg string
	switch outcome {
	case service.OutcomeCommitted:
		msg = map[string]string{"create": "Added.", "update": "Saved.", "delete": "Deleted."}[op]
	case service.OutcomeLocalOnly:
		msg = map[string]string{"update": "Saved locally.", "delete": "Removed locally."}[op]
	case service.OutcomeRetained:
		msg = "Added locally; the backend did not confirm it."
	case service.OutcomeReverted:
		msg = map[string]string{"update": "Save failed; the change was reverted.", "delete": "Delete failed; the row was restored."}[op]
	}
	if remote == nil {
		return msg, ""
	}
	return msg, appErrors.FromError(remote).Message
}
