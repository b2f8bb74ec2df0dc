package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardMetricsCountsCollections(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	dash := NewDashboardService(s.students, s.courses, s.enrollments, 0)

	m := dash.Metrics()
	assert.Equal(t, 3, m.TotalStudents)
	assert.Equal(t, 3, m.TotalCourses)
	assert.Equal(t, 5, m.ActiveEnrollments)
	assert.Zero(t, m.LocalOnlyRows)
	assert.Zero(t, m.DanglingEnrollments)
}

func TestDashboardMetricsCountLocalOnlyRows(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	s.backend.SetDown(true)

	res, err := s.students.Create(context.Background(), CreateStudentRequest{Name: "Ana", Email: "ana@x.io"})
	require.NoError(t, err)
	require.Equal(t, OutcomeRetained, res.Outcome)

	m := NewDashboardService(s.students, s.courses, s.enrollments, 0).Metrics()
	assert.Equal(t, 4, m.TotalStudents)
	assert.Equal(t, 1, m.LocalOnlyRows)
}

func TestDashboardSearch(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	dash := NewDashboardService(s.students, s.courses, s.enrollments, 0)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty returns everyone", query: "", want: []string{"Alice Johnson", "Bob Smith", "Charlie Lee"}},
		{name: "matches name ignoring case", query: "  bOB ", want: []string{"Bob Smith"}},
		{name: "matches email", query: "charlie@", want: []string{"Charlie Lee"}},
		{name: "no match", query: "zed", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dash.Search(tt.query)
			names := make([]string, 0, len(got))
			for _, st := range got {
				names = append(names, st.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDashboardSearchIsCapped(t *testing.T) {
	s := newConsoleServices(t)
	for i := 0; i < 10; i++ {
		s.backend.AddStudent(fmt.Sprintf("Student %d", i), fmt.Sprintf("s%d@example.com", i))
	}
	loadAll(t, s)

	dash := NewDashboardService(s.students, s.courses, s.enrollments, 0)
	assert.Len(t, dash.Search("student"), DefaultSearchLimit)
	assert.Len(t, NewDashboardService(s.students, s.courses, s.enrollments, 2).Search(""), 2)
}

func TestDashboardSummaryAndDelete(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	dash := NewDashboardService(s.students, s.courses, s.enrollments, 0)

	summary := dash.Summary(" lee ")
	assert.Equal(t, "lee", summary.Query)
	require.Len(t, summary.Students, 1)

	res, err := dash.DeleteStudent(context.Background(), summary.Students[0].ClientID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 2, dash.Metrics().TotalStudents)
	assert.Equal(t, 1, dash.Metrics().DanglingEnrollments)
	assert.Same(t, s.students, dash.Students())
}
