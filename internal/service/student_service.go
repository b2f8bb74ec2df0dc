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

type studentRemote interface {
	List(ctx context.Context) ([]apiclient.StudentRecord, error)
	Create(ctx context.Context, payload apiclient.StudentPayload) (apiclient.StudentRecord, error)
	Update(ctx context.Context, id int64, payload apiclient.StudentPayload) (apiclient.StudentRecord, error)
	Delete(ctx context.Context, id int64) error
}

// CreateStudentRequest holds the add-student form.
type CreateStudentRequest struct {
	Name  string `json:"name" form:"name" validate:"required"`
	Email string `json:"email" form:"email" validate:"required"`
}

func (r *CreateStudentRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// StudentService owns the students collection and its optimistic mutations.
type StudentService struct {
	remote    studentRemote
	list      *resourceList[models.Student, models.StudentDraft]
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service around an injected collection.
func NewStudentService(remote studentRemote, rows *store.Collection[models.Student], validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		remote:    remote,
		list:      newResourceList[models.Student, models.StudentDraft]("students", rows, metrics, logger),
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// Rows exposes the read side of the collection.
func (s *StudentService) Rows() *store.Collection[models.Student] { return s.list.rows }

// List returns the students in display order.
func (s *StudentService) List() []models.Student { return s.list.rows.List() }

// Get returns one student row.
func (s *StudentService) Get(id string) (models.Student, error) { return s.list.get(id) }

// FindByServerID looks up a student by backend id.
func (s *StudentService) FindByServerID(serverID int64) (models.Student, bool) {
	for _, st := range s.list.rows.List() {
		if id, ok := st.ServerKey(); ok && id == serverID {
			return st, true
		}
	}
	return models.Student{}, false
}

// Load replaces the collection with the backend's students.
func (s *StudentService) Load(ctx context.Context) error {
	records, err := s.remote.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]models.Student, 0, len(records))
	for _, rec := range records {
		rows = append(rows, studentFromRecord(store.NewID(), models.StudentStatusActive, rec))
	}
	s.list.reset(rows, func(st models.Student, cid string) models.Student {
		st.ClientID = cid
		return st
	})
	return nil
}

// Create validates the form, appends a placeholder row and asks the backend to create it.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (Result[models.Student], error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return Result[models.Student]{}, validationError(err)
	}
	row := models.Student{
		ClientID: store.NewID(),
		Name:     req.Name,
		Email:    req.Email,
		Status:   models.StudentStatusActive,
	}
	return s.list.create(ctx, row, func(ctx context.Context) (models.Student, error) {
		rec, err := s.remote.Create(ctx, apiclient.StudentPayload{Name: row.Name, Email: row.Email})
		if err != nil {
			return row, err
		}
		return studentFromRecord(row.ClientID, row.Status, rec), nil
	})
}

// BeginEdit opens a draft for the row.
func (s *StudentService) BeginEdit(id string) (models.StudentDraft, error) {
	return s.list.beginEdit(id, func(st models.Student) models.StudentDraft {
		return models.StudentDraft{Name: st.Name, Email: st.Email}
	})
}

// UpdateDraft replaces the open draft of the row.
func (s *StudentService) UpdateDraft(id string, d models.StudentDraft) error {
	return s.list.updateDraft(id, d)
}

// Draft returns the open draft of the row, if any.
func (s *StudentService) Draft(id string) (models.StudentDraft, bool) { return s.list.draft(id) }

// Editing returns every open draft keyed by row id.
func (s *StudentService) Editing() map[string]models.StudentDraft { return s.list.editing() }

// CancelEdit discards the draft of the row.
func (s *StudentService) CancelEdit(id string) { s.list.cancelEdit(id) }

// SaveEdit applies the draft of the row.
func (s *StudentService) SaveEdit(ctx context.Context, id string) (Result[models.Student], error) {
	return s.list.save(ctx, id,
		func(st models.Student, d models.StudentDraft) (models.Student, error) {
			req := CreateStudentRequest{Name: d.Name, Email: d.Email}
			req.normalize()
			if err := s.validator.Struct(req); err != nil {
				return st, validationError(err)
			}
			st.Name = req.Name
			st.Email = req.Email
			return st, nil
		},
		func(ctx context.Context, serverID int64, st models.Student) (models.Student, error) {
			rec, err := s.remote.Update(ctx, serverID, apiclient.StudentPayload{Name: st.Name, Email: st.Email})
			if err != nil {
				return st, err
			}
			return studentFromRecord(st.ClientID, st.Status, rec), nil
		})
}

// Edit opens, fills and saves a draft in one step.
func (s *StudentService) Edit(ctx context.Context, id string, d models.StudentDraft) (Result[models.Student], error) {
	if _, err := s.BeginEdit(id); err != nil {
		return Result[models.Student]{}, err
	}
	if err := s.UpdateDraft(id, d); err != nil {
		return Result[models.Student]{}, err
	}
	res, err := s.SaveEdit(ctx, id)
	if err != nil {
		s.CancelEdit(id)
	}
	return res, err
}

// Delete removes the row.
func (s *StudentService) Delete(ctx context.Context, id string) (Result[models.Student], error) {
	return s.list.remove(ctx, id, s.remote.Delete)
}

func studentFromRecord(clientID, status string, rec apiclient.StudentRecord) models.Student {
	id := rec.ID
	if status == "" {
		status = models.StudentStatusActive
	}
	return models.Student{
		ClientID: clientID,
		ServerID: &id,
		Name:     rec.Name,
		Email:    rec.Email,
		Status:   status,
	}
}
