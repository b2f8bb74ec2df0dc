package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-console/internal/models"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

func TestCourseServiceCreateRequiresTitleAndInstructor(t *testing.T) {
	s := newConsoleServices(t)
	require.NoError(t, s.courses.Load(context.Background()))

	_, err := s.courses.Create(context.Background(), CreateCourseRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "instructor is required; title is required", appErr.Message)
	assert.Len(t, s.courses.List(), 3)
}

func TestCourseServiceCreateAndEdit(t *testing.T) {
	s := newConsoleServices(t)
	ctx := context.Background()
	require.NoError(t, s.courses.Load(ctx))

	res, err := s.courses.Create(ctx, CreateCourseRequest{Title: "Databases", Instructor: "Dr. Codd"})
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, res.Outcome)
	require.NotNil(t, res.Row.ServerID)

	edited, err := s.courses.Edit(ctx, res.Row.ClientID, models.CourseDraft{Title: "Databases II", Instructor: "Dr. Codd"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, edited.Outcome)
	assert.Equal(t, res.Row.ClientID, edited.Row.ClientID)

	got, err := s.courses.Get(res.Row.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "Databases II", got.Title)
}

func TestCourseServiceCreateRejectedByBackendIsRetained(t *testing.T) {
	s := newConsoleServices(t)
	ctx := context.Background()
	require.NoError(t, s.courses.Load(ctx))
	s.backend.FailNext(http.MethodPost, "/courses", 1)

	res, err := s.courses.Create(ctx, CreateCourseRequest{Title: "Compilers", Instructor: "Dr. Aho"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetained, res.Outcome)
	assert.True(t, errors.Is(res.Err, appErrors.ErrUpstream))
	assert.Nil(t, res.Row.ServerID)
	assert.Len(t, s.courses.List(), 4)
}

func TestCourseServiceDeleteUnknownRow(t *testing.T) {
	s := newConsoleServices(t)
	_, err := s.courses.Delete(context.Background(), "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
