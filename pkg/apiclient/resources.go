package apiclient

import (
	"context"
	"fmt"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

const (
	studentsPath    = "/students"
	coursesPath     = "/courses"
	enrollmentsPath = "/enrollments"
)

// StudentRecord is the backend representation of a student.
type StudentRecord struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r StudentRecord) recordID() int64 { return r.ID }

// StudentPayload is the body of student create/update calls.
type StudentPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CourseRecord is the backend representation of a course.
type CourseRecord struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Instructor string `json:"instructor"`
}

func (r CourseRecord) recordID() int64 { return r.ID }

// CoursePayload is the body of course create/update calls.
type CoursePayload struct {
	Title      string `json:"title"`
	Instructor string `json:"instructor"`
}

// EnrollmentRecord is the backend representation of an enrollment. Reads may nest the
// referenced student and course.
type EnrollmentRecord struct {
	ID        int64          `json:"id"`
	StudentID int64          `json:"student_id"`
	CourseID  int64          `json:"course_id"`
	Grade     string         `json:"grade,omitempty"`
	Student   *StudentRecord `json:"student,omitempty"`
	Course    *CourseRecord  `json:"course,omitempty"`
}

func (r EnrollmentRecord) recordID() int64 { return r.ID }

// EnrollmentPayload is the body of enrollment create/update calls. The backend rejects an
// empty grade, so it is omitted when blank.
type EnrollmentPayload struct {
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Grade     string `json:"grade,omitempty"`
}

type record interface {
	recordID() int64
}

// Resource exposes the CRUD verbs of one backend collection. Writes also drop the
// cached reads of the dependents, whose records nest this collection's items.
type Resource[R record, P any] struct {
	client     *Client
	path       string
	dependents []string
}

// Students returns the /students resource.
func (c *Client) Students() *Resource[StudentRecord, StudentPayload] {
	return &Resource[StudentRecord, StudentPayload]{client: c, path: studentsPath, dependents: []string{enrollmentsPath}}
}

// Courses returns the /courses resource.
func (c *Client) Courses() *Resource[CourseRecord, CoursePayload] {
	return &Resource[CourseRecord, CoursePayload]{client: c, path: coursesPath, dependents: []string{enrollmentsPath}}
}

// Enrollments returns the /enrollments resource.
func (c *Client) Enrollments() *Resource[EnrollmentRecord, EnrollmentPayload] {
	return &Resource[EnrollmentRecord, EnrollmentPayload]{client: c, path: enrollmentsPath}
}

// Path returns the collection path.
func (r *Resource[R, P]) Path() string { return r.path }

// List fetches the whole collection.
func (r *Resource[R, P]) List(ctx context.Context) ([]R, error) {
	var out []R
	if err := r.client.cachedList(ctx, r.path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []R{}
	}
	return out, nil
}

// Create posts a new item and returns the server record.
func (r *Resource[R, P]) Create(ctx context.Context, payload P) (R, error) {
	var out R
	if err := r.client.Post(ctx, r.path, payload, &out); err != nil {
		return out, err
	}
	r.invalidate(ctx)
	return out, r.identified(out, "POST "+r.path)
}

// Update replaces the fields of item id and returns the server record.
func (r *Resource[R, P]) Update(ctx context.Context, id int64, payload P) (R, error) {
	var out R
	if err := r.client.Put(ctx, r.itemPath(id), payload, &out); err != nil {
		return out, err
	}
	r.invalidate(ctx)
	return out, r.identified(out, "PUT "+r.itemPath(id))
}

// Delete removes item id.
func (r *Resource[R, P]) Delete(ctx context.Context, id int64) error {
	if err := r.client.Delete(ctx, r.itemPath(id)); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *Resource[R, P]) invalidate(ctx context.Context) {
	r.client.invalidate(ctx, r.path)
	for _, dep := range r.dependents {
		r.client.invalidate(ctx, dep)
	}
}

// identified rejects a write answer without a record id, such as an empty 2xx body.
func (r *Resource[R, P]) identified(out R, call string) error {
	if out.recordID() > 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrUpstream, "decode "+call+" response: missing record id")
}

func (r *Resource[R, P]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}
