package models

// Course is a course row held by the console.
type Course struct {
	ClientID   string `json:"client_id"`
	ServerID   *int64 `json:"id,omitempty"`
	Title      string `json:"title"`
	Instructor string `json:"instructor"`
}

// RowID returns the stable row identity.
func (c Course) RowID() string { return c.ClientID }

// Synced reports whether the backend knows this row.
func (c Course) Synced() bool { return c.ServerID != nil }

// ServerKey returns the backend id, if any.
func (c Course) ServerKey() (int64, bool) {
	if c.ServerID == nil {
		return 0, false
	}
	return *c.ServerID, true
}

// CourseDraft holds the editable fields of a course row.
type CourseDraft struct {
	Title      string `json:"title" form:"title"`
	Instructor string `json:"instructor" form:"instructor"`
}
