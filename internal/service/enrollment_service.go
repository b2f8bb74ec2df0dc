package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/store"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

type enrollmentRemote interface {
	List(ctx context.Context) ([]apiclient.EnrollmentRecord, error)
	Create(ctx context.Context, payload apiclient.EnrollmentPayload) (apiclient.EnrollmentRecord, error)
	Update(ctx context.Context, id int64, payload apiclient.EnrollmentPayload) (apiclient.EnrollmentRecord, error)
	Delete(ctx context.Context, id int64) error
}

type studentLookup interface {
	FindByServerID(serverID int64) (models.Student, bool)
}

type courseLookup interface {
	FindByServerID(serverID int64) (models.Course, bool)
}

// CreateEnrollmentRequest holds the add-enrollment form. Ids arrive as typed text.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" form:"student_id" validate:"required,posint"`
	CourseID  string `json:"course_id" form:"course_id" validate:"required,posint"`
	Grade     string `json:"grade" form:"grade" validate:"omitempty,grade"`
}

// UnmarshalJSON accepts numeric ids as well as text.
func (r *CreateEnrollmentRequest) UnmarshalJSON(data []byte) error {
	var d models.EnrollmentDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	r.StudentID, r.CourseID, r.Grade = d.StudentID, d.CourseID, d.Grade
	return nil
}

func (r *CreateEnrollmentRequest) normalize() {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.CourseID = strings.TrimSpace(r.CourseID)
	r.Grade = strings.ToUpper(strings.TrimSpace(r.Grade))
}

// parsed assumes the request already passed validation.
func (r CreateEnrollmentRequest) parsed() (studentID, courseID int64, grade models.Grade) {
	studentID, _ = parsePositiveInt(r.StudentID)
	courseID, _ = parsePositiveInt(r.CourseID)
	return studentID, courseID, models.Grade(r.Grade)
}

// EnrollmentService owns the enrollments collection.
type EnrollmentService struct {
	remote    enrollmentRemote
	list      *resourceList[models.Enrollment, models.EnrollmentDraft]
	validator *validator.Validate
	students  studentLookup
	courses   courseLookup
}

// NewEnrollmentService constructs the enrollment service. students and courses are used
// to resolve display names and may be nil.
func NewEnrollmentService(remote enrollmentRemote, rows *store.Collection[models.Enrollment], students studentLookup, courses courseLookup, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		remote:    remote,
		list:      newResourceList[models.Enrollment, models.EnrollmentDraft]("enrollments", rows, metrics, logger),
		validator: ensureValidator(validate),
		students:  students,
		courses:   courses,
	}
}

func (s *EnrollmentService) Rows() *store.Collection[models.Enrollment] { return s.list.rows }

// List returns the enrollments with student name and course title filled in where the
// referenced rows are known.
func (s *EnrollmentService) List() []models.Enrollment {
	rows := s.list.rows.List()
	for i := range rows {
		rows[i] = s.decorate(rows[i])
	}
	return rows
}

func (s *EnrollmentService) Get(id string) (models.Enrollment, error) {
	row, err := s.list.get(id)
	if err != nil {
		return row, err
	}
	return s.decorate(row), nil
}

// Dangling counts enrollments whose student or course is not in the local collections.
func (s *EnrollmentService) Dangling() int {
	if s.students == nil || s.courses == nil {
		return 0
	}
	n := 0
	for _, e := range s.list.rows.List() {
		_, hasStudent := s.students.FindByServerID(e.StudentID)
		_, hasCourse := s.courses.FindByServerID(e.CourseID)
		if !hasStudent || !hasCourse {
			n++
		}
	}
	return n
}

func (s *EnrollmentService) decorate(e models.Enrollment) models.Enrollment {
	if s.students != nil {
		if st, ok := s.students.FindByServerID(e.StudentID); ok {
			e.StudentName = st.Name
		}
	}
	if s.courses != nil {
		if c, ok := s.courses.FindByServerID(e.CourseID); ok {
			e.CourseTitle = c.Title
		}
	}
	return e
}

// Load replaces the collection with the backend's enrollments.
func (s *EnrollmentService) Load(ctx context.Context) error {
	records, err := s.remote.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]models.Enrollment, 0, len(records))
	for _, rec := range records {
		rows = append(rows, enrollmentFromRecord(store.NewID(), rec))
	}
	s.list.reset(rows, func(e models.Enrollment, cid string) models.Enrollment {
		e.ClientID = cid
		return e
	})
	return nil
}

// Create validates the form, appends a placeholder row and asks the backend to create it.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (Result[models.Enrollment], error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return Result[models.Enrollment]{}, validationError(err)
	}
	studentID, courseID, grade := req.parsed()
	row := models.Enrollment{
		ClientID:  store.NewID(),
		StudentID: studentID,
		CourseID:  courseID,
		Grade:     grade,
	}
	res, err := s.list.create(ctx, row, func(ctx context.Context) (models.Enrollment, error) {
		rec, err := s.remote.Create(ctx, payloadOf(row))
		if err != nil {
			return row, err
		}
		return enrollmentFromRecord(row.ClientID, rec), nil
	})
	res.Row = s.decorate(res.Row)
	return res, err
}

func (s *EnrollmentService) BeginEdit(id string) (models.EnrollmentDraft, error) {
	return s.list.beginEdit(id, func(e models.Enrollment) models.EnrollmentDraft {
		return models.EnrollmentDraft{
			StudentID: formatID(e.StudentID),
			CourseID:  formatID(e.CourseID),
			Grade:     string(e.Grade),
		}
	})
}

func (s *EnrollmentService) UpdateDraft(id string, d models.EnrollmentDraft) error {
	return s.list.updateDraft(id, d)
}

func (s *EnrollmentService) Draft(id string) (models.EnrollmentDraft, bool) {
	return s.list.draft(id)
}

func (s *EnrollmentService) Editing() map[string]models.EnrollmentDraft { return s.list.editing() }

func (s *EnrollmentService) CancelEdit(id string) { s.list.cancelEdit(id) }

// SaveEdit applies the draft of the row.
func (s *EnrollmentService) SaveEdit(ctx context.Context, id string) (Result[models.Enrollment], error) {
	res, err := s.list.save(ctx, id,
		func(e models.Enrollment, d models.EnrollmentDraft) (models.Enrollment, error) {
			req := CreateEnrollmentRequest{StudentID: d.StudentID, CourseID: d.CourseID, Grade: d.Grade}
			req.normalize()
			if err := s.validator.Struct(req); err != nil {
				return e, validationError(err)
			}
			if req.Grade == "" && e.Grade != "" && e.Synced() {
				return e, appErrors.Validation(map[string]string{"grade": "grade cannot be removed once set"})
			}
			e.StudentID, e.CourseID, e.Grade = req.parsed()
			e.StudentName, e.CourseTitle = "", ""
			return e, nil
		},
		func(ctx context.Context, serverID int64, e models.Enrollment) (models.Enrollment, error) {
			rec, err := s.remote.Update(ctx, serverID, payloadOf(e))
			if err != nil {
				return e, err
			}
			return enrollmentFromRecord(e.ClientID, rec), nil
		})
	res.Row = s.decorate(res.Row)
	return res, err
}

// Edit opens, fills and saves a draft in one step.
func (s *EnrollmentService) Edit(ctx context.Context, id string, d models.EnrollmentDraft) (Result[models.Enrollment], error) {
	if _, err := s.BeginEdit(id); err != nil {
		return Result[models.Enrollment]{}, err
	}
	if err := s.UpdateDraft(id, d); err != nil {
		return Result[models.Enrollment]{}, err
	}
	res, err := s.SaveEdit(ctx, id)
	if err != nil {
		s.CancelEdit(id)
	}
	return res, err
}

func (s *EnrollmentService) Delete(ctx context.Context, id string) (Result[models.Enrollment], error) {
	res, err := s.list.remove(ctx, id, s.remote.Delete)
	res.Row = s.decorate(res.Row)
	return res, err
}

func payloadOf(e models.Enrollment) apiclient.EnrollmentPayload {
	return apiclient.EnrollmentPayload{StudentID: e.StudentID, CourseID: e.CourseID, Grade: string(e.Grade)}
}

func enrollmentFromRecord(clientID string, rec apiclient.EnrollmentRecord) models.Enrollment {
	id := rec.ID
	e := models.Enrollment{
		ClientID:  clientID,
		ServerID:  &id,
		StudentID: rec.StudentID,
		CourseID:  rec.CourseID,
		Grade:     models.Grade(rec.Grade),
	}
	if rec.Student != nil {
		e.StudentName = rec.Student.Name
	}
	if rec.Course != nil {
		e.CourseTitle = rec.Course.Title
	}
	return e
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
