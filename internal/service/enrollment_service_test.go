package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-console/internal/models"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

func loadAll(t *testing.T, s *consoleServices) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.students.Load(ctx))
	require.NoError(t, s.courses.Load(ctx))
	require.NoError(t, s.enrollments.Load(ctx))
}

func TestEnrollmentServiceLoadResolvesNames(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)

	rows := s.enrollments.List()
	require.Len(t, rows, 5)
	assert.Equal(t, "Alice Johnson", rows[0].StudentName)
	assert.Equal(t, "Intro to Python", rows[0].CourseTitle)
	assert.Equal(t, models.Grade("A"), rows[0].Grade)
	assert.Equal(t, 0, s.enrollments.Dangling())
}

func TestEnrollmentServiceCreateValidatesIdsAndGrade(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)

	_, err := s.enrollments.Create(context.Background(), CreateEnrollmentRequest{StudentID: "abc", CourseID: "0", Grade: "Z"})
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Equal(t, "student id must be a positive whole number", fields["student_id"])
	assert.Equal(t, "course id must be a positive whole number", fields["course_id"])
	assert.Contains(t, fields["grade"], "grade must be one of A, A-, B+")
	assert.Len(t, s.enrollments.List(), 5)
}

func TestEnrollmentServiceCreateWithoutGrade(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	charlie, _ := s.students.FindByServerID(3)

	res, err := s.enrollments.Create(context.Background(), CreateEnrollmentRequest{StudentID: " 3 ", CourseID: "4", Grade: ""})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, models.Grade(""), res.Row.Grade)
	assert.Equal(t, charlie.Name, res.Row.StudentName)
	assert.Equal(t, "Intro to Python", res.Row.CourseTitle)
	assert.Len(t, s.enrollments.List(), 6)
}

func TestEnrollmentServiceGradeIsNormalized(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)

	res, err := s.enrollments.Create(context.Background(), CreateEnrollmentRequest{StudentID: "2", CourseID: "5", Grade: "b+"})
	require.NoError(t, err)
	assert.Equal(t, models.Grade("B+"), res.Row.Grade)
}

func TestEnrollmentServiceEditFailureReverts(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	before := s.enrollments.List()
	s.backend.FailNext(http.MethodPut, "/enrollments", 1)

	res, err := s.enrollments.Edit(context.Background(), before[0].ClientID, models.EnrollmentDraft{StudentID: "1", CourseID: "4", Grade: "C"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, res.Outcome)
	assert.True(t, errors.Is(res.Err, appErrors.ErrUpstream))
	assert.Equal(t, before, s.enrollments.List())
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.outcomes.WithLabelValues("enrollments", "update", "reverted")))
	assert.Equal(t, uint64(1), s.metrics.Reverts())
}

func TestEnrollmentServiceEditDraftUsesTextIds(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	row := s.enrollments.List()[1]

	draft, err := s.enrollments.BeginEdit(row.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "1", draft.StudentID)
	assert.Equal(t, "5", draft.CourseID)
	assert.Equal(t, "B+", draft.Grade)

	draft.Grade = "A-"
	require.NoError(t, s.enrollments.UpdateDraft(row.ClientID, draft))
	res, err := s.enrollments.SaveEdit(context.Background(), row.ClientID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, models.Grade("A-"), s.enrollments.List()[1].Grade)
	assert.Equal(t, row.ClientID, s.enrollments.List()[1].ClientID)
}

func TestEnrollmentServiceDanglingAfterStudentDelete(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	alice, ok := s.students.FindByServerID(1)
	require.True(t, ok)

	res, err := s.students.Delete(context.Background(), alice.ClientID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)

	// Deletes do not cascade: Alice's two enrollments stay and now point nowhere.
	assert.Len(t, s.enrollments.List(), 5)
	assert.Equal(t, 2, s.enrollments.Dangling())
}

func TestEnrollmentServiceDeleteOffline(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	before := s.enrollments.List()
	s.backend.SetDown(true)

	res, err := s.enrollments.Delete(context.Background(), before[4].ClientID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, res.Outcome)
	assert.Equal(t, before, s.enrollments.List())
}

func TestEnrollmentServiceRefusesToClearSyncedGrade(t *testing.T) {
	s := newConsoleServices(t)
	loadAll(t, s)
	row := s.enrollments.List()[0]
	require.Equal(t, models.Grade("A"), row.Grade)
	calls := len(s.backend.Calls())

	_, err := s.enrollments.Edit(context.Background(), row.ClientID, models.EnrollmentDraft{StudentID: "1", CourseID: "4", Grade: " "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, "grade cannot be removed once set", appErrors.FromError(err).Fields["grade"])

	after := s.enrollments.List()[0]
	assert.Equal(t, models.Grade("A"), after.Grade)
	assert.Len(t, s.backend.Calls(), calls)
	_, editing := s.enrollments.Editing()[row.ClientID]
	assert.False(t, editing)
}

func TestCreateEnrollmentRequestAcceptsNumericIds(t *testing.T) {
	var req CreateEnrollmentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":3,"course_id":"4","grade":"b"}`), &req))
	assert.Equal(t, CreateEnrollmentRequest{StudentID: "3", CourseID: "4", Grade: "b"}, req)

	var draft models.EnrollmentDraft
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":1,"course_id":null}`), &draft))
	assert.Equal(t, models.EnrollmentDraft{StudentID: "1"}, draft)

	assert.Error(t, json.Unmarshal([]byte(`{"student_id":true}`), &req))
}
