package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Grade is a letter grade.
type Grade string

// Grades lists every accepted letter grade, best first.
var Grades = []Grade{"A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

// Valid reports whether g is one of Grades. The empty grade is not valid; callers treat
// it as "no grade".
func (g Grade) Valid() bool {
	for _, known := range Grades {
		if g == known {
			return true
		}
	}
	return false
}

// Enrollment links a student to a course by server ids.
type Enrollment struct {
	ClientID  string `json:"client_id"`
	ServerID  *int64 `json:"id,omitempty"`
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Grade     Grade  `json:"grade,omitempty"`

	// Display names resolved from nested backend records or local collections.
	StudentName string `json:"student_name,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
}

// RowID returns the stable row identity.
func (e Enrollment) RowID() string { return e.ClientID }

// Synced reports whether the backend knows this row.
func (e Enrollment) Synced() bool { return e.ServerID != nil }

// ServerKey returns the backend id, if any.
func (e Enrollment) ServerKey() (int64, bool) {
	if e.ServerID == nil {
		return 0, false
	}
	return *e.ServerID, true
}

// EnrollmentDraft holds the editable fields of an enrollment row as typed by the user.
type EnrollmentDraft struct {
	StudentID string `json:"student_id" form:"student_id"`
	CourseID  string `json:"course_id" form:"course_id"`
	Grade     string `json:"grade" form:"grade"`
}

// UnmarshalJSON accepts the ids as JSON numbers or strings. Forms always post text, API
// clients usually send numbers.
func (d *EnrollmentDraft) UnmarshalJSON(data []byte) error {
	var aux struct {
		StudentID IDText `json:"student_id"`
		CourseID  IDText `json:"course_id"`
		Grade     string `json:"grade"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.StudentID, d.CourseID, d.Grade = string(aux.StudentID), string(aux.CourseID), aux.Grade
	return nil
}

// IDText is an id as typed text. It decodes from a JSON string or number; null decodes
// to the empty text.
type IDText string

func (t *IDText) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = IDText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*t = IDText(n.String())
	return nil
}
