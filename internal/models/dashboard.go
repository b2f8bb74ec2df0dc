package models

// DashboardMetrics aggregates collection counts.
type DashboardMetrics struct {
	TotalStudents       int `json:"totalStudents"`
	TotalCourses        int `json:"totalCourses"`
	ActiveEnrollments   int `json:"activeEnrollments"`
	LocalOnlyRows       int `json:"localOnlyRows"`
	DanglingEnrollments int `json:"danglingEnrollments"`
}

// Dashboard is the dashboard view model.
type Dashboard struct {
	Metrics  DashboardMetrics `json:"metrics"`
	Query    string           `json:"query"`
	Students []Student        `json:"students"`
}
