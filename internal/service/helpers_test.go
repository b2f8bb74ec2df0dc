package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/testutil/fakebackend"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
)

const (
	timeoutShort = time.Second
	tick         = 5 * time.Millisecond
)

// consoleServices wires the three resource services against a seeded fake backend.
type consoleServices struct {
	backend     *fakebackend.Backend
	students    *StudentService
	courses     *CourseService
	enrollments *EnrollmentService
	metrics     *MetricsService
}

func newConsoleServices(t *testing.T) *consoleServices {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.Seed()

	metrics := NewMetricsService()
	client := apiclient.New(backend.URL, apiclient.WithObserver(metrics))
	t.Cleanup(client.Close)

	validate := NewValidator()
	students := NewStudentService(client.Students(), nil, validate, metrics, zap.NewNop())
	courses := NewCourseService(client.Courses(), nil, validate, metrics, zap.NewNop())
	enrollments := NewEnrollmentService(client.Enrollments(), nil, students, courses, validate, metrics, zap.NewNop())
	return &consoleServices{backend: backend, students: students, courses: courses, enrollments: enrollments, metrics: metrics}
}
