package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/export"
	"github.com/noah-isme/enrollment-console/pkg/storage"
)

// Exportable resources.
const (
	ResourceStudents    = "students"
	ResourceCourses     = "courses"
	ResourceEnrollments = "enrollments"
)

// ExportFile is a rendered export ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ArchivedExport points at an export kept on disk behind an expiring link.
type ArchivedExport struct {
	Filename  string    `json:"filename"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImportRowError describes one rejected spreadsheet row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarizes a student import.
type ImportReport struct {
	Created   int              `json:"created"`
	Retained  int              `json:"retained"`
	Invalid   []ImportRowError `json:"invalid"`
	Processed int              `json:"processed"`
}

// ExportService renders collections to files and imports students from spreadsheets.
type ExportService struct {
	students    *StudentService
	courses     *CourseService
	enrollments *EnrollmentService
	title       string
	logger      *zap.Logger

	archive *storage.Archive
	links   *storage.LinkSigner
}

// NewExportService builds the export service.
func NewExportService(students *StudentService, courses *CourseService, enrollments *EnrollmentService, title string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, courses: courses, enrollments: enrollments, title: title, logger: logger}
}

// WithArchive enables archived exports. Files older than the link lifetime are pruned on
// each new archive.
func (s *ExportService) WithArchive(archive *storage.Archive, links *storage.LinkSigner) *ExportService {
	s.archive = archive
	s.links = links
	return s
}

// ArchiveEnabled reports whether Archive can be used.
func (s *ExportService) ArchiveEnabled() bool {
	return s.archive != nil && s.links != nil
}

// Dataset returns the rows of a collection in display order.
func (s *ExportService) Dataset(resource string) (export.Dataset, error) {
	switch resource {
	case ResourceStudents:
		data := export.Dataset{Name: "Students", Headers: []string{"id", "name", "email", "status"}}
		for _, st := range s.students.List() {
			data.Rows = append(data.Rows, []string{serverIDText(st.ServerID), st.Name, st.Email, st.Status})
		}
		return data, nil
	case ResourceCourses:
		data := export.Dataset{Name: "Courses", Headers: []string{"id", "title", "instructor"}}
		for _, c := range s.courses.List() {
			data.Rows = append(data.Rows, []string{serverIDText(c.ServerID), c.Title, c.Instructor})
		}
		return data, nil
	case ResourceEnrollments:
		data := export.Dataset{Name: "Enrollments", Headers: []string{"id", "student_id", "student", "course_id", "course", "grade"}}
		for _, e := range s.enrollments.List() {
			data.Rows = append(data.Rows, []string{
				serverIDText(e.ServerID),
				strconv.FormatInt(e.StudentID, 10),
				e.StudentName,
				strconv.FormatInt(e.CourseID, 10),
				e.CourseTitle,
				string(e.Grade),
			})
		}
		return data, nil
	default:
		return export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown resource %q", resource))
	}
}

// Export renders a collection in the requested format.
func (s *ExportService) Export(resource, format string) (ExportFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return ExportFile{}, appErrors.Validation(map[string]string{"format": err.Error()})
	}
	data, err := s.Dataset(resource)
	if err != nil {
		return ExportFile{}, err
	}
	body, err := export.RendererFor(f).Render(data, s.title)
	if err != nil {
		return ExportFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}
	return ExportFile{
		Filename:    fmt.Sprintf("%s.%s", resource, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

// Archive renders a collection, stores the file and signs a download link for it.
func (s *ExportService) Archive(resource, format string) (ArchivedExport, error) {
	if !s.ArchiveEnabled() {
		return ArchivedExport{}, appErrors.Clone(appErrors.ErrNotFound, "export archive is disabled")
	}
	file, err := s.Export(resource, format)
	if err != nil {
		return ArchivedExport{}, err
	}
	if pruned, err := s.archive.Prune(s.links.TTL()); err != nil {
		s.logger.Warn("prune export archive", zap.Error(err))
	} else if len(pruned) > 0 {
		s.logger.Debug("pruned archived exports", zap.Strings("files", pruned))
	}

	name := fmt.Sprintf("%s-%s", uuid.NewString()[:8], file.Filename)
	if err := s.archive.Put(name, file.Body); err != nil {
		return ArchivedExport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store export")
	}
	token, expires, err := s.links.Sign(name)
	if err != nil {
		return ArchivedExport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign export link")
	}
	s.logger.Info("export archived", zap.String("resource", resource), zap.String("file", name), zap.Time("expires_at", expires))
	return ArchivedExport{Filename: name, Token: token, ExpiresAt: expires}, nil
}

// OpenArchived resolves a download token to the stored file path.
func (s *ExportService) OpenArchived(token string) (string, error) {
	if !s.ArchiveEnabled() {
		return "", appErrors.Clone(appErrors.ErrNotFound, "export archive is disabled")
	}
	name, err := s.links.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return "", appErrors.Wrap(err, "LINK_EXPIRED", http.StatusGone, err.Error())
		}
		return "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, err.Error())
	}
	path, err := s.archive.Path(name)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "archived export not found")
	}
	return path, nil
}

// ImportStudents reads a workbook with "name" and "email" columns and creates one student
// per row through the normal create path. Invalid rows are skipped and reported.
func (s *ExportService) ImportStudents(ctx context.Context, r io.Reader) (ImportReport, error) {
	data, err := export.ReadSheet(r)
	if err != nil {
		return ImportReport{}, appErrors.Validation(map[string]string{"file": err.Error()})
	}
	if data.Column("name") < 0 || data.Column("email") < 0 {
		return ImportReport{}, appErrors.Validation(map[string]string{"file": "sheet must have name and email columns"})
	}

	report := ImportReport{Invalid: []ImportRowError{}}
	for i, row := range data.Rows {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		req := CreateStudentRequest{Name: data.Value(row, "name"), Email: data.Value(row, "email")}
		if req.Name == "" && req.Email == "" {
			continue
		}
		report.Processed++
		res, err := s.students.Create(ctx, req)
		if err != nil {
			// Spreadsheet row numbers are 1-based and the header takes row 1.
			report.Invalid = append(report.Invalid, ImportRowError{Row: i + 2, Message: err.Error()})
			continue
		}
		if res.Outcome == OutcomeCommitted {
			report.Created++
		} else {
			report.Retained++
		}
	}
	s.logger.Info("student import finished",
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("retained", report.Retained),
		zap.Int("invalid", len(report.Invalid)))
	return report, nil
}

func serverIDText(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
