package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/service"
	"github.com/noah-isme/enrollment-console/internal/store"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/response"
)

// rowService is the surface shared by the student, course and enrollment services.
// T is the row, D its edit draft and C its create form.
type rowService[T store.Row, D any, C any] interface {
	Rows() *store.Collection[T]
	List() []T
	Create(ctx context.Context, req C) (service.Result[T], error)
	BeginEdit(id string) (D, error)
	UpdateDraft(id string, d D) error
	Editing() map[string]D
	CancelEdit(id string)
	SaveEdit(ctx context.Context, id string) (service.Result[T], error)
	Edit(ctx context.Context, id string, d D) (service.Result[T], error)
	Delete(ctx context.Context, id string) (service.Result[T], error)
}

// listView is the data of a resource page.
type listView[T any, D any, C any] struct {
	Rows    []T
	Editing map[string]*D
	Pending map[string]bool
	Form    C
}

// ResourceHandler serves one resource both as an HTML view and as JSON.
type ResourceHandler[T store.Row, D any, C any] struct {
	svc      rowService[T, D, C]
	resource string
	title    string
	prefix   string
}

type (
	StudentHandler    = ResourceHandler[models.Student, models.StudentDraft, service.CreateStudentRequest]
	CourseHandler     = ResourceHandler[models.Course, models.CourseDraft, service.CreateCourseRequest]
	EnrollmentHandler = ResourceHandler[models.Enrollment, models.EnrollmentDraft, service.CreateEnrollmentRequest]
)

// NewStudentHandler serves the students view.
func NewStudentHandler(svc *service.StudentService, prefix string) *StudentHandler {
	return &StudentHandler{svc: svc, resource: service.ResourceStudents, title: "Students", prefix: prefix}
}

// NewCourseHandler serves the courses view.
func NewCourseHandler(svc *service.CourseService, prefix string) *CourseHandler {
	return &CourseHandler{svc: svc, resource: service.ResourceCourses, title: "Courses", prefix: prefix}
}

// NewEnrollmentHandler serves the enrollments view.
func NewEnrollmentHandler(svc *service.EnrollmentService, prefix string) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc, resource: service.ResourceEnrollments, title: "Enrollments", prefix: prefix}
}

func (h *ResourceHandler[T, D, C]) render(c *gin.Context, status int, p page, form C) {
	rows := h.svc.List()
	drafts := h.svc.Editing()
	view := listView[T, D, C]{
		Rows:    rows,
		Editing: make(map[string]*D, len(drafts)),
		Pending: make(map[string]bool),
		Form:    form,
	}
	for id, d := range drafts {
		d := d
		view.Editing[id] = &d
	}
	for _, row := range rows {
		if h.svc.Rows().Pending(row.RowID()) {
			view.Pending[row.RowID()] = true
		}
	}
	p.Title = h.title
	p.Nav = h.resource
	p.Prefix = h.prefix
	p.Data = view
	renderPage(c, status, h.resource+".tmpl", p)
}

// Page renders the resource table.
func (h *ResourceHandler[T, D, C]) Page(c *gin.Context) {
	var form C
	h.render(c, http.StatusOK, page{}, form)
}

// CreateForm handles the add form.
func (h *ResourceHandler[T, D, C]) CreateForm(c *gin.Context) {
	var form C
	if err := c.ShouldBind(&form); err != nil {
		var p page
		status := p.fail(appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
		h.render(c, status, p, form)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), form)
	if err != nil {
		var p page
		status := p.fail(err)
		h.render(c, status, p, form)
		return
	}
	var p page
	p.Notice, p.Error = notice("create", res.Outcome, res.Err)
	var empty C
	h.render(c, http.StatusOK, p, empty)
}

// BeginEditForm opens the inline editor for a row.
func (h *ResourceHandler[T, D, C]) BeginEditForm(c *gin.Context) {
	var p page
	status := http.StatusOK
	if _, err := h.svc.BeginEdit(c.Param("row")); err != nil {
		status = p.fail(err)
	}
	var form C
	h.render(c, status, p, form)
}

// SaveForm saves the inline editor of a row.
func (h *ResourceHandler[T, D, C]) SaveForm(c *gin.Context) {
	id := c.Param("row")
	var p page
	var form C
	var draft D
	if err := c.ShouldBind(&draft); err != nil {
		status := p.fail(appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
		h.render(c, status, p, form)
		return
	}
	if err := h.svc.UpdateDraft(id, draft); err != nil {
		h.render(c, p.fail(err), p, form)
		return
	}
	res, err := h.svc.SaveEdit(c.Request.Context(), id)
	if err != nil {
		h.render(c, p.fail(err), p, form)
		return
	}
	p.Notice, p.Error = notice("update", res.Outcome, res.Err)
	h.render(c, http.StatusOK, p, form)
}

// CancelForm closes the inline editor of a row.
func (h *ResourceHandler[T, D, C]) CancelForm(c *gin.Context) {
	h.svc.CancelEdit(c.Param("row"))
	var form C
	h.render(c, http.StatusOK, page{}, form)
}

// DeleteForm removes a row.
func (h *ResourceHandler[T, D, C]) DeleteForm(c *gin.Context) {
	var p page
	var form C
	res, err := h.svc.Delete(c.Request.Context(), c.Param("row"))
	if err != nil {
		h.render(c, p.fail(err), p, form)
		return
	}
	p.Notice, p.Error = notice("delete", res.Outcome, res.Err)
	h.render(c, http.StatusOK, p, form)
}

// List godoc
// @Summary List rows of a resource
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
// @Router /courses [get]
// @Router /enrollments [get]
func (h *ResourceHandler[T, D, C]) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.svc.List())
}

// Create godoc
// @Summary Create a row optimistically
// @Tags Resources
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope "kept locally, backend did not confirm"
// @Failure 400 {object} response.Envelope
// @Router /students [post]
// @Router /courses [post]
// @Router /enrollments [post]
func (h *ResourceHandler[T, D, C]) Create(c *gin.Context) {
	var req C
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, http.StatusCreated, res)
}

// Update godoc
// @Summary Edit a row optimistically
// @Tags Resources
// @Accept json
// @Produce json
// @Param row path string true "Client row id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope "reverted"
// @Router /students/{row} [put]
// @Router /courses/{row} [put]
// @Router /enrollments/{row} [put]
func (h *ResourceHandler[T, D, C]) Update(c *gin.Context) {
	var draft D
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.svc.Edit(c.Request.Context(), c.Param("row"), draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// Delete godoc
// @Summary Delete a row optimistically
// @Tags Resources
// @Produce json
// @Param row path string true "Client row id"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope "restored"
// @Router /students/{row} [delete]
// @Router /courses/{row} [delete]
// @Router /enrollments/{row} [delete]
func (h *ResourceHandler[T, D, C]) Delete(c *gin.Context) {
	res, err := h.svc.Delete(c.Request.Context(), c.Param("row"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// writeResult maps an optimistic outcome onto the JSON contract: reverted changes answer
// with the backend error, retained creates with 202.
func writeResult[T any](c *gin.Context, status int, res service.Result[T]) {
	meta := map[string]interface{}{"outcome": res.Outcome}
	if res.Err != nil {
		meta["upstream_error"] = appErrors.FromError(res.Err).Message
	}
	switch res.Outcome {
	case service.OutcomeReverted:
		response.ErrorWithData(c, res.Err, res.Row, meta)
		return
	case service.OutcomeRetained:
		status = http.StatusAccepted
	}
	response.JSON(c, status, res.Row, meta)
}
