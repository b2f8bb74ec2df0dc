package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/service"
	"github.com/noah-isme/enrollment-console/internal/store"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
	"github.com/noah-isme/enrollment-console/pkg/config"
	"github.com/noah-isme/enrollment-console/pkg/storage"
)

// App holds the three collections and the services built on them.
type App struct {
	Client      *apiclient.Client
	Metrics     *service.MetricsService
	Students    *service.StudentService
	Courses     *service.CourseService
	Enrollments *service.EnrollmentService
	Dashboard   *service.DashboardService
	Export      *service.ExportService

	logger *zap.Logger
}

// New wires the services around fresh, empty collections. metrics may be nil.
func New(cfg *config.Config, client *apiclient.Client, metrics *service.MetricsService, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := service.NewValidator()

	students := service.NewStudentService(client.Students(), store.New[models.Student](), validate, metrics, logger)
	courses := service.NewCourseService(client.Courses(), store.New[models.Course](), validate, metrics, logger)
	enrollments := service.NewEnrollmentService(client.Enrollments(), store.New[models.Enrollment](), students, courses, validate, metrics, logger)

	searchLimit, title := service.DefaultSearchLimit, ""
	if cfg != nil {
		searchLimit = cfg.Dashboard.SearchLimit
		title = cfg.Export.Title
	}
	exports := service.NewExportService(students, courses, enrollments, title, logger)
	if cfg != nil && cfg.Export.Dir != "" && cfg.Export.LinkSecret != "" {
		archive, err := storage.NewArchive(cfg.Export.Dir)
		if err != nil {
			logger.Warn("export archive disabled", zap.Error(err))
		} else {
			exports.WithArchive(archive, storage.NewLinkSigner(cfg.Export.LinkSecret, cfg.Export.LinkTTL))
		}
	}

	return &App{
		Client:      client,
		Metrics:     metrics,
		Students:    students,
		Courses:     courses,
		Enrollments: enrollments,
		Dashboard:   service.NewDashboardService(students, courses, enrollments, searchLimit),
		Export:      exports,
		logger:      logger,
	}
}

// Load fetches the three collections concurrently. A collection that fails to load is
// left as it was; the first failure is returned after every fetch has finished.
func (a *App) Load(ctx context.Context) error {
	loaders := []struct {
		name string
		load func(context.Context) error
	}{
		{service.ResourceStudents, a.Students.Load},
		{service.ResourceCourses, a.Courses.Load},
		{service.ResourceEnrollments, a.Enrollments.Load},
	}

	var g errgroup.Group
	for _, l := range loaders {
		l := l
		g.Go(func() error {
			if err := l.load(ctx); err != nil {
				a.logger.Warn("load collection failed", zap.String("resource", l.name), zap.Error(err))
				return fmt.Errorf("load %s: %w", l.name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		a.logger.Info("collections loaded",
			zap.Int("students", a.Students.Rows().Len()),
			zap.Int("courses", a.Courses.Rows().Len()),
			zap.Int("enrollments", a.Enrollments.Rows().Len()))
	}
	return err
}

// Refresh reloads the collections from the backend. Rows already known keep their client
// ids and rows that only exist locally are kept.
func (a *App) Refresh(ctx context.Context) error {
	return a.Load(ctx)
}

// Ready reports whether the backend answers.
func (a *App) Ready(ctx context.Context) error {
	return a.Client.Ping(ctx)
}
