package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/store"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
)

type courseRemote interface {
	List(ctx context.Context) ([]apiclient.CourseRecord, error)
	Create(ctx context.Context, payload apiclient.CoursePayload) (apiclient.CourseRecord, error)
	Update(ctx context.Context, id int64, payload apiclient.CoursePayload) (apiclient.CourseRecord, error)
	Delete(ctx context.Context, id int64) error
}

// CreateCourseRequest holds the add-course form.
type CreateCourseRequest struct {
	Title      string `json:"title" form:"title" validate:"required"`
	Instructor string `json:"instructor" form:"instructor" validate:"required"`
}

func (r *CreateCourseRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Instructor = strings.TrimSpace(r.Instructor)
}

// CourseService owns the courses collection.
type CourseService struct {
	remote    courseRemote
	list      *resourceList[models.Course, models.CourseDraft]
	validator *validator.Validate
}

// NewCourseService constructs the course service around an injected collection.
func NewCourseService(remote courseRemote, rows *store.Collection[models.Course], validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CourseService {
	return &CourseService{
		remote:    remote,
		list:      newResourceList[models.Course, models.CourseDraft]("courses", rows, metrics, logger),
		validator: ensureValidator(validate),
	}
}

func (s *CourseService) Rows() *store.Collection[models.Course] { return s.list.rows }

func (s *CourseService) List() []models.Course { return s.list.rows.List() }

func (s *CourseService) Get(id string) (models.Course, error) { return s.list.get(id) }

// FindByServerID looks up a course by backend id.
func (s *CourseService) FindByServerID(serverID int64) (models.Course, bool) {
	for _, c := range s.list.rows.List() {
		if id, ok := c.ServerKey(); ok && id == serverID {
			return c, true
		}
	}
	return models.Course{}, false
}

// Load replaces the collection with the backend's courses.
func (s *CourseService) Load(ctx context.Context) error {
	records, err := s.remote.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]models.Course, 0, len(records))
	for _, rec := range records {
		rows = append(rows, courseFromRecord(store.NewID(), rec))
	}
	s.list.reset(rows, func(c models.Course, cid string) models.Course {
		c.ClientID = cid
		return c
	})
	return nil
}

// Create validates the form, appends a placeholder row and asks the backend to create it.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (Result[models.Course], error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return Result[models.Course]{}, validationError(err)
	}
	row := models.Course{ClientID: store.NewID(), Title: req.Title, Instructor: req.Instructor}
	return s.list.create(ctx, row, func(ctx context.Context) (models.Course, error) {
		rec, err := s.remote.Create(ctx, apiclient.CoursePayload{Title: row.Title, Instructor: row.Instructor})
		if err != nil {
			return row, err
		}
		return courseFromRecord(row.ClientID, rec), nil
	})
}

func (s *CourseService) BeginEdit(id string) (models.CourseDraft, error) {
	return s.list.beginEdit(id, func(c models.Course) models.CourseDraft {
		return models.CourseDraft{Title: c.Title, Instructor: c.Instructor}
	})
}

func (s *CourseService) UpdateDraft(id string, d models.CourseDraft) error {
	return s.list.updateDraft(id, d)
}

func (s *CourseService) Draft(id string) (models.CourseDraft, bool) { return s.list.draft(id) }

func (s *CourseService) Editing() map[string]models.CourseDraft { return s.list.editing() }

func (s *CourseService) CancelEdit(id string) { s.list.cancelEdit(id) }

// SaveEdit applies the draft of the row.
func (s *CourseService) SaveEdit(ctx context.Context, id string) (Result[models.Course], error) {
	return s.list.save(ctx, id,
		func(c models.Course, d models.CourseDraft) (models.Course, error) {
			req := CreateCourseRequest{Title: d.Title, Instructor: d.Instructor}
			req.normalize()
			if err := s.validator.Struct(req); err != nil {
				return c, validationError(err)
			}
			c.Title = req.Title
			c.Instructor = req.Instructor
			return c, nil
		},
		func(ctx context.Context, serverID int64, c models.Course) (models.Course, error) {
			rec, err := s.remote.Update(ctx, serverID, apiclient.CoursePayload{Title: c.Title, Instructor: c.Instructor})
			if err != nil {
				return c, err
			}
			return courseFromRecord(c.ClientID, rec), nil
		})
}

// Edit opens, fills and saves a draft in one step.
func (s *CourseService) Edit(ctx context.Context, id string, d models.CourseDraft) (Result[models.Course], error) {
	if _, err := s.BeginEdit(id); err != nil {
		return Result[models.Course]{}, err
	}
	if err := s.UpdateDraft(id, d); err != nil {
		return Result[models.Course]{}, err
	}
	res, err := s.SaveEdit(ctx, id)
	if err != nil {
		s.CancelEdit(id)
	}
	return res, err
}

// Delete removes the row. Enrollments pointing at the course are left untouched.
func (s *CourseService) Delete(ctx context.Context, id string) (Result[models.Course], error) {
	return s.list.remove(ctx, id, s.remote.Delete)
}

func courseFromRecord(clientID string, rec apiclient.CourseRecord) models.Course {
	id := rec.ID
	return models.Course{ClientID: clientID, ServerID: &id, Title: rec.Title, Instructor: rec.Instructor}
}
