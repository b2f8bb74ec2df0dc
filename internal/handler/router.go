package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/app"
)

// Register mounts the console views, the JSON mirror under apiPrefix and the ops routes.
func Register(r *gin.Engine, a *app.App, apiPrefix string) {
	if apiPrefix == "" {
		apiPrefix = "/api"
	}
	r.SetHTMLTemplate(Templates())

	students := NewStudentHandler(a.Students, apiPrefix)
	courses := NewCourseHandler(a.Courses, apiPrefix)
	enrollments := NewEnrollmentHandler(a.Enrollments, apiPrefix)
	dashboard := NewDashboardHandler(a.Dashboard, apiPrefix)
	exports := NewExportHandler(a.Export)
	system := NewSystemHandler(a, a.Metrics)

	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	if a.Metrics != nil {
		r.GET("/metrics", system.Prometheus)
	}

	r.GET("/", dashboard.Page)
	r.POST("/dashboard/students/:row/edit", dashboard.BeginEditForm)
	r.POST("/dashboard/students/:row", dashboard.SaveForm)
	r.POST("/dashboard/students/:row/cancel", dashboard.CancelForm)
	r.POST("/dashboard/students/:row/delete", dashboard.DeleteForm)
	r.POST("/refresh", system.RefreshForm)

	mountViews(r.Group("/students"), students.Page, students.CreateForm, students.BeginEditForm, students.SaveForm, students.CancelForm, students.DeleteForm)
	mountViews(r.Group("/courses"), courses.Page, courses.CreateForm, courses.BeginEditForm, courses.SaveForm, courses.CancelForm, courses.DeleteForm)
	mountViews(r.Group("/enrollments"), enrollments.Page, enrollments.CreateForm, enrollments.BeginEditForm, enrollments.SaveForm, enrollments.CancelForm, enrollments.DeleteForm)

	api := r.Group(apiPrefix)
	mountJSON(api.Group("/students"), students.List, students.Create, students.Update, students.Delete)
	mountJSON(api.Group("/courses"), courses.List, courses.Create, courses.Update, courses.Delete)
	mountJSON(api.Group("/enrollments"), enrollments.List, enrollments.Create, enrollments.Update, enrollments.Delete)
	api.GET("/dashboard", dashboard.Summary)
	api.POST("/refresh", system.Refresh)
	api.GET("/export/:resource", exports.Download)
	api.POST("/export/:resource/archive", exports.Archive)
	api.GET("/exports/:token", exports.Fetch)
	api.POST("/import/students", exports.ImportStudents)
}

func mountViews(g *gin.RouterGroup, list, create, edit, save, cancel, remove gin.HandlerFunc) {
	g.GET("", list)
	g.POST("", create)
	g.POST("/:row/edit", edit)
	g.POST("/:row", save)
	g.POST("/:row/cancel", cancel)
	g.POST("/:row/delete", remove)
}

func mountJSON(g *gin.RouterGroup, list, create, update, remove gin.HandlerFunc) {
	g.GET("", list)
	g.POST("", create)
	g.PUT("/:row", update)
	g.DELETE("/:row", remove)
}
