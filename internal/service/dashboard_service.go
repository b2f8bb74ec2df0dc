package service

import (
	"context"
	"strings"

	"github.com/noah-isme/enrollment-console/internal/models"
)

// DefaultSearchLimit caps dashboard search results.
const DefaultSearchLimit = 6

// DashboardService summarizes the three collections and searches students.
type DashboardService struct {
	students    *StudentService
	courses     *CourseService
	enrollments *EnrollmentService
	limit       int
}

// NewDashboardService builds the dashboard over the resource services.
func NewDashboardService(students *StudentService, courses *CourseService, enrollments *EnrollmentService, limit int) *DashboardService {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &DashboardService{students: students, courses: courses, enrollments: enrollments, limit: limit}
}

// Metrics counts the collections as they are held locally.
func (s *DashboardService) Metrics() models.DashboardMetrics {
	students := s.students.List()
	courses := s.courses.List()
	enrollments := s.enrollments.Rows().List()

	localOnly := 0
	for _, st := range students {
		if !st.Synced() {
			localOnly++
		}
	}
	for _, c := range courses {
		if !c.Synced() {
			localOnly++
		}
	}
	for _, e := range enrollments {
		if !e.Synced() {
			localOnly++
		}
	}

	return models.DashboardMetrics{
		TotalStudents:       len(students),
		TotalCourses:        len(courses),
		ActiveEnrollments:   len(enrollments),
		LocalOnlyRows:       localOnly,
		DanglingEnrollments: s.enrollments.Dangling(),
	}
}

// Search returns up to the configured number of students whose name or email contains
// query, ignoring case. An empty query returns the first students.
func (s *DashboardService) Search(query string) []models.Student {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Student, 0, s.limit)
	for _, st := range s.students.List() {
		if len(out) == s.limit {
			break
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(st.Name), needle) ||
			strings.Contains(strings.ToLower(st.Email), needle) {
			out = append(out, st)
		}
	}
	return out
}

// Summary builds the dashboard view model.
func (s *DashboardService) Summary(query string) models.Dashboard {
	return models.Dashboard{
		Metrics:  s.Metrics(),
		Query:    strings.TrimSpace(query),
		Students: s.Search(query),
	}
}

// Students returns the service behind the dashboard's student list. Edits made from the
// dashboard follow the same optimistic policy as the students view.
func (s *DashboardService) Students() *StudentService { return s.students }

// DeleteStudent removes a student from the dashboard list.
func (s *DashboardService) DeleteStudent(ctx context.Context, id string) (Result[models.Student], error) {
	return s.students.Delete(ctx, id)
}
