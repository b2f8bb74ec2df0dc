package models

// StudentStatusActive is the status every student row starts with.
const StudentStatusActive = "Active"

// Student is a learner row held by the console.
type Student struct {
	ClientID string `json:"client_id"`
	ServerID *int64 `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

// RowID returns the stable row identity.
func (s Student) RowID() string { return s.ClientID }

// Synced reports whether the backend knows this row.
func (s Student) Synced() bool { return s.ServerID != nil }

// ServerKey returns the backend id, if any.
func (s Student) ServerKey() (int64, bool) {
	if s.ServerID == nil {
		return 0, false
	}
	return *s.ServerID, true
}

// StudentDraft holds the editable fields of a student row.
type StudentDraft struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}
