// Package fakebackend is an in-memory stand-in for the enrollment REST backend, used by tests
// across the module.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/pkg/apiclient"
)

var gradePattern = regexp.MustCompile(`^(A|A-|B\+|B|B-|C\+|C|C-|D\+|D|D-|F)$`)

// Backend serves /students, /courses and /enrollments with the same status codes as the
// real service: 201 on create, 204 on delete, 404 for unknown ids, 400 for bad payloads.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	nextID      int64
	students    map[int64]apiclient.StudentRecord
	courses     map[int64]apiclient.CourseRecord
	enrollments map[int64]apiclient.EnrollmentRecord
	failures    map[string]int
	down        bool
	calls       []string
	headers     []http.Header
}

// New starts a backend; it is closed via t.Cleanup by the caller.
func New() *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		students:    map[int64]apiclient.StudentRecord{},
		courses:     map[int64]apiclient.CourseRecord{},
		enrollments: map[int64]apiclient.EnrollmentRecord{},
		failures:    map[string]int{},
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

// Seed loads three students, three courses and five enrollments.
func (b *Backend) Seed() {
	alice := b.AddStudent("Alice Johnson", "alice@example.com")
	bob := b.AddStudent("Bob Smith", "bob@example.com")
	charlie := b.AddStudent("Charlie Lee", "charlie@example.com")
	python := b.AddCourse("Intro to Python", "Dr. Nguyen")
	ds := b.AddCourse("Data Structures", "Prof. Patel")
	web := b.AddCourse("Web Development", "Ms. Rivera")
	b.AddEnrollment(alice.ID, python.ID, "A")
	b.AddEnrollment(alice.ID, ds.ID, "B+")
	b.AddEnrollment(bob.ID, python.ID, "A-")
	b.AddEnrollment(bob.ID, web.ID, "B")
	b.AddEnrollment(charlie.ID, web.ID, "C+")
}

// AddStudent inserts a student directly.
func (b *Backend) AddStudent(name, email string) apiclient.StudentRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	rec := apiclient.StudentRecord{ID: b.nextID, Name: name, Email: email}
	b.students[rec.ID] = rec
	return rec
}

// AddCourse inserts a course directly.
func (b *Backend) AddCourse(title, instructor string) apiclient.CourseRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	rec := apiclient.CourseRecord{ID: b.nextID, Title: title, Instructor: instructor}
	b.courses[rec.ID] = rec
	return rec
}

// AddEnrollment inserts an enrollment directly.
func (b *Backend) AddEnrollment(studentID, courseID int64, grade string) apiclient.EnrollmentRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	rec := apiclient.EnrollmentRecord{ID: b.nextID, StudentID: studentID, CourseID: courseID, Grade: grade}
	b.enrollments[rec.ID] = rec
	return rec
}

// FailNext makes the next n requests matching "METHOD /resource" answer 500.
func (b *Backend) FailNext(method, resource string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+resource] += n
}

// SetDown makes every request answer 503 until reset.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Calls returns "METHOD /path" for every request received.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// LastHeader returns the headers of the most recent request.
func (b *Backend) LastHeader() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.headers) == 0 {
		return nil
	}
	return b.headers[len(b.headers)-1]
}

// StudentCount returns the number of stored students.
func (b *Backend) StudentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.students)
}

// Student returns a stored student.
func (b *Backend) Student(id int64) (apiclient.StudentRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.students[id]
	return s, ok
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(b.gate)

	r.GET("/students", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c.JSON(http.StatusOK, sorted(b.students, func(s apiclient.StudentRecord) int64 { return s.ID }))
	})
	r.POST("/students", func(c *gin.Context) {
		var p apiclient.StudentPayload
		if err := c.ShouldBindJSON(&p); err != nil || strings.TrimSpace(p.Name) == "" || !strings.Contains(p.Email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"name": []string{"invalid"}})
			return
		}
		c.JSON(http.StatusCreated, b.AddStudent(p.Name, p.Email))
	})
	r.PUT("/students/:id", func(c *gin.Context) {
		var p apiclient.StudentPayload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		s, ok := b.students[idParam(c)]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		if p.Name != "" {
			s.Name = p.Name
		}
		if p.Email != "" {
			s.Email = p.Email
		}
		b.students[s.ID] = s
		c.JSON(http.StatusOK, s)
	})
	r.DELETE("/students/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.students[idParam(c)]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(b.students, idParam(c))
		c.Status(http.StatusNoContent)
	})

	r.GET("/courses", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c.JSON(http.StatusOK, sorted(b.courses, func(s apiclient.CourseRecord) int64 { return s.ID }))
	})
	r.POST("/courses", func(c *gin.Context) {
		var p apiclient.CoursePayload
		if err := c.ShouldBindJSON(&p); err != nil || p.Title == "" || p.Instructor == "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusCreated, b.AddCourse(p.Title, p.Instructor))
	})
	r.PUT("/courses/:id", func(c *gin.Context) {
		var p apiclient.CoursePayload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		rec, ok := b.courses[idParam(c)]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		if p.Title != "" {
			rec.Title = p.Title
		}
		if p.Instructor != "" {
			rec.Instructor = p.Instructor
		}
		b.courses[rec.ID] = rec
		c.JSON(http.StatusOK, rec)
	})
	r.DELETE("/courses/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.courses[idParam(c)]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(b.courses, idParam(c))
		c.Status(http.StatusNoContent)
	})

	r.GET("/enrollments", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := sorted(b.enrollments, func(e apiclient.EnrollmentRecord) int64 { return e.ID })
		for i := range out {
			if s, ok := b.students[out[i].StudentID]; ok {
				s := s
				out[i].Student = &s
			}
			if co, ok := b.courses[out[i].CourseID]; ok {
				co := co
				out[i].Course = &co
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.POST("/enrollments", func(c *gin.Context) {
		var p apiclient.EnrollmentPayload
		if err := c.ShouldBindJSON(&p); err != nil || p.StudentID <= 0 || p.CourseID <= 0 ||
			(p.Grade != "" && !gradePattern.MatchString(p.Grade)) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusCreated, b.AddEnrollment(p.StudentID, p.CourseID, p.Grade))
	})
	r.PUT("/enrollments/:id", func(c *gin.Context) {
		var p apiclient.EnrollmentPayload
		if err := c.ShouldBindJSON(&p); err != nil || (p.Grade != "" && !gradePattern.MatchString(p.Grade)) {
			c.Status(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		rec, ok := b.enrollments[idParam(c)]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		if p.StudentID > 0 {
			rec.StudentID = p.StudentID
		}
		if p.CourseID > 0 {
			rec.CourseID = p.CourseID
		}
		if p.Grade != "" {
			rec.Grade = p.Grade
		}
		b.enrollments[rec.ID] = rec
		c.JSON(http.StatusOK, rec)
	})
	r.DELETE("/enrollments/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.enrollments[idParam(c)]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(b.enrollments, idParam(c))
		c.Status(http.StatusNoContent)
	})
	return r
}

func (b *Backend) gate(c *gin.Context) {
	resource := "/" + strings.SplitN(strings.TrimPrefix(c.Request.URL.Path, "/"), "/", 2)[0]
	b.mu.Lock()
	b.calls = append(b.calls, c.Request.Method+" "+c.Request.URL.Path)
	b.headers = append(b.headers, c.Request.Header.Clone())
	down := b.down
	key := c.Request.Method + " " + resource
	fail := b.failures[key] > 0
	if fail {
		b.failures[key]--
	}
	b.mu.Unlock()

	if down {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	if fail {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
		return
	}
	c.Next()
}

func idParam(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

func sorted[T any](m map[int64]T, key func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}
