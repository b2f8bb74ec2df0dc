package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/enrollment-console/internal/testutil/fakebackend"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/middleware/requestid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func newClient(t *testing.T, opts ...apiclient.Option) (*apiclient.Client, *fakebackend.Backend) {
	t.Helper()
	backend := fakebackend.New()
	client := apiclient.New(backend.URL+"/", opts...)
	t.Cleanup(func() {
		client.Close()
		backend.Close()
	})
	return client, backend
}

func TestStudentsRoundTrip(t *testing.T) {
	client, backend := newClient(t)
	ctx := context.Background()

	created, err := client.Students().Create(ctx, apiclient.StudentPayload{Name: "Ana", Email: "ana@x.com"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := client.Students().Update(ctx, created.ID, apiclient.StudentPayload{Name: "Ana Maria", Email: "ana@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)

	list, err := client.Students().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, client.Students().Delete(ctx, created.ID))
	assert.Equal(t, 0, backend.StudentCount())
	assert.Equal(t, []string{
		"POST /students",
		"PUT /students/" + itoa(created.ID),
		"GET /students",
		"DELETE /students/" + itoa(created.ID),
	}, backend.Calls())
}

func TestEmptyCollectionIsNotNil(t *testing.T) {
	client, _ := newClient(t)
	courses, err := client.Courses().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}

func TestEnrollmentReadsCarryNestedRecords(t *testing.T) {
	client, backend := newClient(t)
	backend.Seed()

	enrollments, err := client.Enrollments().List(context.Background())
	require.NoError(t, err)
	require.Len(t, enrollments, 5)
	require.NotNil(t, enrollments[0].Student)
	assert.Equal(t, "Alice Johnson", enrollments[0].Student.Name)
	assert.Equal(t, "Intro to Python", enrollments[0].Course.Title)
}

func TestNonSuccessStatusIsUpstreamError(t *testing.T) {
	client, backend := newClient(t)
	backend.FailNext(http.MethodPost, "/courses", 1)

	_, err := client.Courses().Create(context.Background(), apiclient.CoursePayload{Title: "Go", Instructor: "Rob"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Contains(t, err.Error(), "POST /courses failed")

	var statusErr *apiclient.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestNotFoundOnUnknownItem(t *testing.T) {
	client, _ := newClient(t)
	err := client.Enrollments().Delete(context.Background(), 404)
	var statusErr *apiclient.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := apiclient.New(url, apiclient.WithTimeout(time.Second))
	defer client.Close()
	_, err := client.Students().List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
	assert.True(t, appErrors.IsRemote(err))
}

func TestRequestIDIsForwarded(t *testing.T) {
	client, backend := newClient(t)
	ctx := requestid.WithValue(context.Background(), "req-42")

	_, err := client.Students().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req-42", backend.LastHeader().Get(requestid.HeaderKey))
}

type memCache struct {
	mu          sync.Mutex
	entries     map[string][]apiclient.StudentRecord
	invalidated []string
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]apiclient.StudentRecord)) = v
	return true, nil
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = *(value.(*[]apiclient.StudentRecord))
	return nil
}

func (m *memCache) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	m.entries = map[string][]apiclient.StudentRecord{}
	return nil
}

func TestCollectionReadsAreCachedUntilWrite(t *testing.T) {
	cache := &memCache{entries: map[string][]apiclient.StudentRecord{}}
	client, backend := newClient(t, apiclient.WithCache(cache, time.Minute))
	backend.AddStudent("Bob", "bob@example.com")
	ctx := context.Background()

	_, err := client.Students().List(ctx)
	require.NoError(t, err)
	_, err = client.Students().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /students"}, backend.Calls())

	_, err = client.Students().Create(ctx, apiclient.StudentPayload{Name: "Ana", Email: "ana@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollconsole:collection:/students*", "enrollconsole:collection:/enrollments*"}, cache.invalidated)

	list, err := client.Students().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestWritesInvalidateNestingCollections(t *testing.T) {
	cache := &memCache{entries: map[string][]apiclient.StudentRecord{}}
	client, backend := newClient(t, apiclient.WithCache(cache, time.Minute))
	course := backend.AddCourse("Intro to Python", "Dr. Ada")
	student := backend.AddStudent("Bob", "bob@example.com")
	ctx := context.Background()

	_, err := client.Courses().Update(ctx, course.ID, apiclient.CoursePayload{Title: "Python I", Instructor: "Dr. Ada"})
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollconsole:collection:/courses*", "enrollconsole:collection:/enrollments*"}, cache.invalidated)

	cache.invalidated = nil
	_, err = client.Enrollments().Create(ctx, apiclient.EnrollmentPayload{StudentID: student.ID, CourseID: course.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollconsole:collection:/enrollments*"}, cache.invalidated)
}

func TestWriteAnswerWithoutIDIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	client := apiclient.New(srv.URL)
	t.Cleanup(func() {
		client.Close()
		srv.Close()
	})
	ctx := context.Background()

	_, err := client.Students().Create(ctx, apiclient.StudentPayload{Name: "Ana", Email: "ana@x.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Contains(t, err.Error(), "missing record id")

	_, err = client.Students().Update(ctx, 4, apiclient.StudentPayload{Name: "Ana", Email: "ana@x.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
}

type recordingObserver struct {
	mu    sync.Mutex
	seen  []string
	codes []int
}

func (o *recordingObserver) ObserveUpstream(method, resource string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, method+" "+resource)
	o.codes = append(o.codes, status)
}

func TestObserverUsesCollectionLabels(t *testing.T) {
	obs := &recordingObserver{}
	client, backend := newClient(t, apiclient.WithObserver(obs))
	s := backend.AddStudent("Bob", "bob@example.com")

	require.NoError(t, client.Students().Delete(context.Background(), s.ID))
	assert.Equal(t, []string{"DELETE /students"}, obs.seen)
	assert.Equal(t, []int{http.StatusNoContent}, obs.codes)
}

func TestPing(t *testing.T) {
	client, backend := newClient(t)
	require.NoError(t, client.Ping(context.Background()))
	backend.SetDown(true)
	assert.Error(t, client.Ping(context.Background()))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
