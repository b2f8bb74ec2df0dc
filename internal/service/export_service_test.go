package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/export"
	"github.com/noah-isme/enrollment-console/pkg/storage"
)

func newExportService(t *testing.T) (*consoleServices, *ExportService) {
	t.Helper()
	s := newConsoleServices(t)
	loadAll(t, s)
	return s, NewExportService(s.students, s.courses, s.enrollments, "Enrollment Console", zap.NewNop())
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestExportStudentsCSV(t *testing.T) {
	_, svc := newExportService(t)

	file, err := svc.Export(ResourceStudents, "")
	require.NoError(t, err)
	assert.Equal(t, "students.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,name,email,status", lines[0])
	assert.Equal(t, "1,Alice Johnson,alice@example.com,Active", lines[1])
}

func TestExportEnrollmentsXLSXRoundTrip(t *testing.T) {
	_, svc := newExportService(t)

	file, err := svc.Export(ResourceEnrollments, "XLSX")
	require.NoError(t, err)
	assert.Equal(t, "enrollments.xlsx", file.Filename)

	data, err := export.ReadSheet(bytes.NewReader(file.Body))
	require.NoError(t, err)
	assert.Equal(t, "Enrollments", data.Name)
	require.Len(t, data.Rows, 5)
	assert.Equal(t, "Alice Johnson", data.Value(data.Rows[0], "student"))
	assert.Equal(t, "Intro to Python", data.Value(data.Rows[0], "course"))
	assert.Equal(t, "C+", data.Value(data.Rows[4], "grade"))
}

func TestExportCoursesPDF(t *testing.T) {
	_, svc := newExportService(t)

	file, err := svc.Export(ResourceCourses, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestExportRejectsUnknownInputs(t *testing.T) {
	_, svc := newExportService(t)

	_, err := svc.Export("teachers", "csv")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Export(ResourceStudents, "docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, appErrors.FromError(err).Fields["format"], "docx")
}

func TestImportStudents(t *testing.T) {
	s, svc := newExportService(t)
	buf := workbook(t, [][]interface{}{
		{"Name", "Email"},
		{"Dana Scully", "dana@example.com"},
		{"", ""},
		{"Fox Mulder", ""},
		{"Walter Skinner", "walter@example.com"},
	})

	report, err := svc.ImportStudents(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Retained)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, 4, report.Invalid[0].Row)
	assert.Contains(t, report.Invalid[0].Message, "email is required")
	assert.Len(t, s.students.List(), 5)
	assert.Equal(t, 5, s.backend.StudentCount())
}

func TestImportStudentsOfflineRetainsRows(t *testing.T) {
	s, svc := newExportService(t)
	s.backend.SetDown(true)
	buf := workbook(t, [][]interface{}{{"name", "email"}, {"Dana Scully", "dana@example.com"}})

	report, err := svc.ImportStudents(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retained)
	assert.Zero(t, report.Created)
	assert.Len(t, s.students.List(), 4)
}

func TestImportStudentsRequiresColumns(t *testing.T) {
	_, svc := newExportService(t)

	_, err := svc.ImportStudents(context.Background(), workbook(t, [][]interface{}{{"full name"}, {"Dana"}}))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.ImportStudents(context.Background(), strings.NewReader("not a workbook"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestArchiveStoresFileBehindLink(t *testing.T) {
	_, svc := newExportService(t)
	assert.False(t, svc.ArchiveEnabled())
	_, err := svc.Archive(ResourceCourses, "csv")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	svc.WithArchive(archive, storage.NewLinkSigner("s3cret", time.Hour))

	archived, err := svc.Archive(ResourceCourses, "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(archived.Filename, "-courses.pdf"))

	path, err := svc.OpenArchived(archived.Token)
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	_, err = svc.OpenArchived(archived.Token + "x")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
