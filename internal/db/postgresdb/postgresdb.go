// Package postgresdb provides a PostgreSQL-based implementation of the storage
// contract. Uniqueness of usernames, emails and course names is enforced by
// table constraints; course relations live in the users_courses table.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

const uniqueViolationCode = "23505"

const (
	relationOwner   = "owner"
	relationTeacher = "teacher"
	relationStudent = "student"
)

// PostgresDB is a PostgreSQL-backed implementation of the course portal storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
	DriverName string
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// WithDriverName selects the database/sql driver: "pgx" (default) or "postgres" (lib/pq).
func WithDriverName(driverName string) InitOption {
	return func(options *initOptions) {
		if driverName != "" {
			options.DriverName = driverName
		}
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
		DriverName: "pgx",
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open(options.DriverName, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w",
			err,
		)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, err
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

// CreateUser inserts a new user and returns the generated id.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (username, email, password_hash)
				VALUES ($1, $2, $3)
				RETURNING id
		`,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
	)
	var userID string
	if err := row.Scan(&userID); err != nil {
		return "", classifyError(err)
	}

	return userID, nil
}

// GetUserByID fetches a user with the course relations.
// Identifiers that are not UUIDs are reported as storage.ErrNotFound.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, storage.ErrNotFound
	}

	return db.getUser(ctx, `SELECT id, username, email, password_hash FROM users WHERE id = $1`, userID)
}

// GetUserByUsername fetches a user by exact username match.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, username, email, password_hash FROM users WHERE username = $1`, username)
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*user.User, error) {
	usr := &user.User{}
	err := db.database.QueryRowContext(ctx, query, arg).Scan(
		&usr.ID,
		&usr.Username,
		&usr.Email,
		&usr.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT course_id, relation FROM users_courses WHERE user_id = $1 ORDER BY course_id`,
		usr.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseID, relation string
		if err := rows.Scan(&courseID, &relation); err != nil {
			return nil, err
		}
		switch relation {
		case relationOwner:
			usr.OwnedCourses = append(usr.OwnedCourses, courseID)
		case relationTeacher:
			usr.TaughtCourses = append(usr.TaughtCourses, courseID)
		case relationStudent:
			usr.EnrolledCourses = append(usr.EnrolledCourses, courseID)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return usr, nil
}

// CreateCourse inserts a course and its student relations in one transaction.
// An empty owner is stored as NULL.
func (db *PostgresDB) CreateCourse(ctx context.Context, course *models.Course) (string, error) {
	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	courseID, err := createCourseInTransaction(ctx, transaction, course)
	if err != nil {
		if err2 := transaction.Rollback(); err2 != nil {
			return "", err2
		}
		return "", err
	}

	if err := transaction.Commit(); err != nil {
		return "", err
	}

	return courseID, nil
}

func createCourseInTransaction(ctx context.Context, transaction *sql.Tx, course *models.Course) (string, error) {
	var courseID string
	err := transaction.QueryRowContext(
		ctx,
		`
			INSERT INTO courses (name, description, owner_id, teacher_id)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		course.Name,
		course.Description,
		nullableUUID(course.OwnerID),
		nullableUUID(course.TeacherID),
	).Scan(&courseID)
	if err != nil {
		return "", classifyError(err)
	}

	for _, studentID := range funk.UniqString(course.StudentIDs) {
		_, err := transaction.ExecContext(
			ctx,
			`
				INSERT INTO users_courses (user_id, course_id, relation)
					VALUES ($1, $2, $3)
					ON CONFLICT DO NOTHING
			`,
			studentID,
			courseID,
			relationStudent,
		)
		if err != nil {
			return "", fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/createCourseInTransaction(): error while saving student %q: %w",
				studentID,
				err,
			)
		}
	}

	return courseID, nil
}

// GetCourses returns every course ordered by creation time, with student ids.
func (db *PostgresDB) GetCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, name, description, COALESCE(owner_id::text, ''), COALESCE(teacher_id::text, '')
				FROM courses
				ORDER BY created_at, id
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Course{}
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(&course.ID, &course.Name, &course.Description, &course.OwnerID, &course.TeacherID); err != nil {
			return nil, err
		}
		result = append(result, course)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	students, err := db.getStudentsByCourse(ctx)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].StudentIDs = students[result[i].ID]
	}

	return result, nil
}

func (db *PostgresDB) getStudentsByCourse(ctx context.Context) (map[string][]string, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT course_id, user_id FROM users_courses WHERE relation = $1 ORDER BY user_id`,
		relationStudent,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string][]string{}
	for rows.Next() {
		var courseID, userID string
		if err := rows.Scan(&courseID, &userID); err != nil {
			return nil, err
		}
		result[courseID] = append(result[courseID], userID)
	}

	return result, rows.Err()
}

// GetCourseByName fetches a course by exact name match.
func (db *PostgresDB) GetCourseByName(ctx context.Context, name string) (*models.Course, error) {
	course := &models.Course{}
	err := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, name, description, COALESCE(owner_id::text, ''), COALESCE(teacher_id::text, '')
				FROM courses
				WHERE name = $1
		`,
		name,
	).Scan(&course.ID, &course.Name, &course.Description, &course.OwnerID, &course.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return course, nil
}

// AttachOwnedCourses records owner relations in one statement.
// Pairs that reference unknown users or courses are skipped.
func (db *PostgresDB) AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error {
	pairs := prepareOwnershipPairs(usersCourses)
	if len(pairs) == 0 {
		return nil
	}

	placeholders := make([]string, len(pairs))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("($%d::uuid, $%d::uuid)", i*2+1, i*2+2)
	}
	queryParams := funk.Flatten(pairs).([]string)

	args := make([]interface{}, len(queryParams))
	for i, v := range queryParams {
		args[i] = v
	}

	_, err := db.database.ExecContext(
		ctx,
		fmt.Sprintf(
			`
				INSERT INTO users_courses (user_id, course_id, relation)
					SELECT v.user_id, v.course_id, '%s'
						FROM (VALUES %s) AS v (user_id, course_id)
						JOIN users ON users.id = v.user_id
						JOIN courses ON courses.id = v.course_id
					ON CONFLICT DO NOTHING
			`,
			relationOwner,
			strings.Join(placeholders, ","),
		),
		args...,
	)

	return err
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (db *PostgresDB) GetNumberOfCourses(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM courses`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// classifyError maps a unique violation reported by either driver to storage.ErrDuplicateKey.
func classifyError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}

	return false
}

func nullableUUID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

func prepareOwnershipPairs(usersCourses map[string][]string) [][]string {
	result := [][]string{}
	for userID, courseIDs := range usersCourses {
		if _, err := uuid.Parse(userID); err != nil {
			continue
		}
		for _, courseID := range courseIDs {
			if _, err := uuid.Parse(courseID); err != nil {
				continue
			}
			result = append(result, []string{userID, courseID})
		}
	}

	return result
}
