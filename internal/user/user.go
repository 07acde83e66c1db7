// Package user defines the user record shared by the storage backends,
// the session layer and the HTTP handlers.
package user

// User represents a registered account.
type User struct {
	// ID is the store-generated identifier. It is also the session cookie payload.
	ID string `json:"id"`

	// Username is unique across users and is the login name.
	Username string `json:"username"`

	// Email is unique across users.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the password, never the plaintext.
	PasswordHash string `json:"password_hash"`

	// OwnedCourses, TaughtCourses and EnrolledCourses hold course IDs.
	OwnedCourses    []string `json:"owned_courses,omitempty"`
	TaughtCourses   []string `json:"taught_courses,omitempty"`
	EnrolledCourses []string `json:"enrolled_courses,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a stored record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.OwnedCourses = append([]string(nil), u.OwnedCourses...)
	clone.TaughtCourses = append([]string(nil), u.TaughtCourses...)
	clone.EnrolledCourses = append([]string(nil), u.EnrolledCourses...)

	return &clone
}

// OwnsCourse reports whether courseID is among the user's owned courses.
func (u *User) OwnsCourse(courseID string) bool {
	for _, id := range u.OwnedCourses {
		if id == courseID {
			return true
		}
	}

	return false
}
