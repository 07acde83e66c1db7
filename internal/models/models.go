package models

// Course is a course record. Name is unique across courses.
type Course struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	OwnerID     string   `json:"owner_id"`
	TeacherID   string   `json:"teacher_id,omitempty"`
	StudentIDs  []string `json:"student_ids,omitempty"`
}

// Clone returns a deep copy of the course.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	clone := *c
	clone.StudentIDs = append([]string(nil), c.StudentIDs...)

	return &clone
}

// RegisterRequest is the body of POST /reg.
// No rules are attached on purpose: malformed input reaches the store unchanged.
type RegisterRequest struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

// LoginRequest is the body of POST /auth.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// CreateCourseRequest is the body of POST /create-course.
type CreateCourseRequest struct {
	Name        string `form:"name"`
	Description string `form:"description"`
}

// InternalStatsResponse is returned by GET /api/internal/stats.
type InternalStatsResponse struct {
	Courses int64 `json:"courses"`
	Users   int64 `json:"users"`
}

// OwnershipJob asks the ownership syncer to link a course to its owner.
type OwnershipJob struct {
	UserID   string
	CourseID string
}

const (
	StorageTypeUnknown = iota
	StorageTypeMongo
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// SeedCourseName and SeedCourseDescription describe the course inserted on startup.
const (
	SeedCourseName        = "Программирование на Node.js"
	SeedCourseDescription = "Изучение разработки веб-приложений на Node.js"
)
