package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/service"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/response"
)

// DashboardHandler serves the summary page and its student quick-edit list.
type DashboardHandler struct {
	dashboard *service.DashboardService
	prefix    string
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, prefix string) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, prefix: prefix}
}

type dashboardView struct {
	models.Dashboard
	Editing map[string]*models.StudentDraft
}

func (h *DashboardHandler) render(c *gin.Context, status int, p page) {
	query := c.Query("q")
	if query == "" {
		query = c.PostForm("q")
	}
	view := dashboardView{
		Dashboard: h.dashboard.Summary(query),
		Editing:   map[string]*models.StudentDraft{},
	}
	for id, d := range h.dashboard.Students().Editing() {
		d := d
		view.Editing[id] = &d
	}
	p.Title = "Dashboard"
	p.Nav = "dashboard"
	p.Prefix = h.prefix
	p.Data = view
	renderPage(c, status, "dashboard.tmpl", p)
}

// Page renders the dashboard.
func (h *DashboardHandler) Page(c *gin.Context) {
	h.render(c, http.StatusOK, page{})
}

// BeginEditForm opens the inline editor for a student on the dashboard.
func (h *DashboardHandler) BeginEditForm(c *gin.Context) {
	var p page
	status := http.StatusOK
	if _, err := h.dashboard.Students().BeginEdit(c.Param("row")); err != nil {
		status = p.fail(err)
	}
	h.render(c, status, p)
}

// SaveForm saves a student edited on the dashboard.
func (h *DashboardHandler) SaveForm(c *gin.Context) {
	id := c.Param("row")
	students := h.dashboard.Students()
	var p page
	var draft models.StudentDraft
	if err := c.ShouldBind(&draft); err != nil {
		h.render(c, p.fail(appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form")), p)
		return
	}
	if err := students.UpdateDraft(id, draft); err != nil {
		h.render(c, p.fail(err), p)
		return
	}
	res, err := students.SaveEdit(c.Request.Context(), id)
	if err != nil {
		h.render(c, p.fail(err), p)
		return
	}
	p.Notice, p.Error = notice("update", res.Outcome, res.Err)
	h.render(c, http.StatusOK, p)
}

// CancelForm closes the dashboard inline editor.
func (h *DashboardHandler) CancelForm(c *gin.Context) {
	h.dashboard.Students().CancelEdit(c.Param("row"))
	h.render(c, http.StatusOK, page{})
}

// DeleteForm removes a student from the dashboard list.
func (h *DashboardHandler) DeleteForm(c *gin.Context) {
	var p page
	res, err := h.dashboard.DeleteStudent(c.Request.Context(), c.Param("row"))
	if err != nil {
		h.render(c, p.fail(err), p)
		return
	}
	p.Notice, p.Error = notice("delete", res.Outcome, res.Err)
	h.render(c, http.StatusOK, p)
}

// Summary godoc
// @Summary Dashboard metrics and student search
// @Tags Dashboard
// @Produce json
// @Param q query string false "Case-insensitive name or email fragment"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.dashboard.Summary(c.Query("q")))
}
