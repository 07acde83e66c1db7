// Package jsondb implements the storage contract on top of an in-memory
// cache that is loaded from and flushed to a single JSON file.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

// JSONDB keeps users and courses in memory and writes them to fileName on Close.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the persisted document. The *Index maps enforce uniqueness.
type CacheStruct struct {
	Users           map[string]*user.User
	Courses         map[string]*models.Course
	CoursesOrder    []string
	UsernameIndex   map[string]string
	EmailIndex      map[string]string
	CourseNameIndex map[string]string
}

// NewCache returns an empty cache with every map allocated.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:           map[string]*user.User{},
		Courses:         map[string]*models.Course{},
		CoursesOrder:    []string{},
		UsernameIndex:   map[string]string{},
		EmailIndex:      map[string]string{},
		CourseNameIndex: map[string]string{},
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName, creating it with an empty document when it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `writeToJSONFile()` calling: %w", err)
		}
	}
	db.Cache.fillNilMaps()

	return db, nil
}

func (c *CacheStruct) fillNilMaps() {
	empty := NewCache()
	if c.Users == nil {
		c.Users = empty.Users
	}
	if c.Courses == nil {
		c.Courses = empty.Courses
	}
	if c.UsernameIndex == nil {
		c.UsernameIndex = empty.UsernameIndex
	}
	if c.EmailIndex == nil {
		c.EmailIndex = empty.EmailIndex
	}
	if c.CourseNameIndex == nil {
		c.CourseNameIndex = empty.CourseNameIndex
	}
}

// CreateUser stores usr under a fresh UUID.
// It fails with storage.ErrDuplicateKey when the username or email is taken.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.UsernameIndex[usr.Username]; taken {
		return "", fmt.Errorf("username %q: %w", usr.Username, storage.ErrDuplicateKey)
	}
	if _, taken := db.Cache.EmailIndex[usr.Email]; taken {
		return "", fmt.Errorf("email %q: %w", usr.Email, storage.ErrDuplicateKey)
	}

	stored := usr.Clone()
	stored.ID = uuid.New().String()
	db.Cache.Users[stored.ID] = stored
	db.Cache.UsernameIndex[stored.Username] = stored.ID
	db.Cache.EmailIndex[stored.Email] = stored.ID

	return stored.ID, nil
}

// GetUserByID returns a copy of the user or storage.ErrNotFound.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, storage.ErrNotFound
	}

	return usr.Clone(), nil
}

// GetUserByUsername looks the user up by exact username match.
func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.UsernameIndex[username]
	if !found {
		return nil, storage.ErrNotFound
	}

	return db.Cache.Users[userID].Clone(), nil
}

// CreateCourse stores course under a fresh UUID.
// It fails with storage.ErrDuplicateKey when the name is taken.
func (db *JSONDB) CreateCourse(ctx context.Context, course *models.Course) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.CourseNameIndex[course.Name]; taken {
		return "", fmt.Errorf("course %q: %w", course.Name, storage.ErrDuplicateKey)
	}

	stored := course.Clone()
	stored.ID = uuid.New().String()
	db.Cache.Courses[stored.ID] = stored
	db.Cache.CoursesOrder = append(db.Cache.CoursesOrder, stored.ID)
	db.Cache.CourseNameIndex[stored.Name] = stored.ID

	return stored.ID, nil
}

// GetCourses returns every course in insertion order.
func (db *JSONDB) GetCourses(ctx context.Context) ([]models.Course, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.Course, 0, len(db.Cache.CoursesOrder))
	for _, courseID := range db.Cache.CoursesOrder {
		if course, found := db.Cache.Courses[courseID]; found {
			result = append(result, *course.Clone())
		}
	}

	return result, nil
}

// GetCourseByName looks the course up by exact name match.
func (db *JSONDB) GetCourseByName(ctx context.Context, name string) (*models.Course, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	courseID, found := db.Cache.CourseNameIndex[name]
	if !found {
		return nil, storage.ErrNotFound
	}

	return db.Cache.Courses[courseID].Clone(), nil
}

// AttachOwnedCourses appends course IDs to each user's owned list.
// Unknown users are skipped, IDs already present are not repeated.
func (db *JSONDB) AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for userID, courseIDs := range usersCourses {
		usr, found := db.Cache.Users[userID]
		if !found {
			continue
		}
		for _, courseID := range courseIDs {
			if !usr.OwnsCourse(courseID) {
				usr.OwnedCourses = append(usr.OwnedCourses, courseID)
			}
		}
	}

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfCourses(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Courses)), nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the JSON file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
