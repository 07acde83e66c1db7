// Package mongodb implements the storage contract on MongoDB, the document
// store the portal was first written against. Users and courses live in the
// "User" and "Course" collections; uniqueness is enforced by unique indexes.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

const (
	usersCollection   = "User"
	coursesCollection = "Course"
)

// MongoDB is a MongoDB-backed implementation of the course portal storage.
type MongoDB struct {
	client            *mongo.Client
	users             *mongo.Collection
	courses           *mongo.Collection
	connectionTimeout time.Duration
}

type userDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Username        string               `bson:"username"`
	Email           string               `bson:"email"`
	Password        string               `bson:"password"`
	OwnedCourses    []primitive.ObjectID `bson:"ownedCourses,omitempty"`
	TaughtCourses   []primitive.ObjectID `bson:"taughtCourses,omitempty"`
	EnrolledCourses []primitive.ObjectID `bson:"enrolledCourses,omitempty"`
}

type courseDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Owner       *primitive.ObjectID  `bson:"owner,omitempty"`
	Teacher     *primitive.ObjectID  `bson:"teacher,omitempty"`
	Students    []primitive.ObjectID `bson:"students,omitempty"`
}

// New connects to uri, selects databaseName and makes sure the unique indexes exist.
func New(
	ctx context.Context,
	uri string,
	databaseName string,
	connectionTimeout time.Duration,
) (*MongoDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `mongo.Connect()` calling: %w", err)
	}

	database := client.Database(databaseName)
	result := &MongoDB{
		client:            client,
		users:             database.Collection(usersCollection),
		courses:           database.Collection(coursesCollection),
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if err := result.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `result.ensureIndexes()` calling: %w", err)
	}

	return result, nil
}

func (db *MongoDB) ensureIndexes(ctx context.Context) error {
	uniqueIndex := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}

	if _, err := db.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		uniqueIndex("username"),
		uniqueIndex("email"),
	}); err != nil {
		return err
	}

	_, err := db.courses.Indexes().CreateOne(ctx, uniqueIndex("name"))

	return err
}

// CreateUser inserts a user document and returns its ObjectID in hex.
func (db *MongoDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	doc := userDocument{
		Username: usr.Username,
		Email:    usr.Email,
		Password: usr.PasswordHash,
	}

	inserted, err := db.users.InsertOne(ctx, doc)
	if err != nil {
		return "", classifyError(err)
	}

	return insertedIDHex(inserted)
}

// GetUserByID fetches a user. Identifiers that are not ObjectIDs are reported as storage.ErrNotFound.
func (db *MongoDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	return db.findUser(ctx, bson.M{"_id": objectID})
}

// GetUserByUsername fetches a user by exact username match.
func (db *MongoDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return db.findUser(ctx, bson.M{"username": username})
}

func (db *MongoDB) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDocument
	if err := db.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &user.User{
		ID:              doc.ID.Hex(),
		Username:        doc.Username,
		Email:           doc.Email,
		PasswordHash:    doc.Password,
		OwnedCourses:    hexes(doc.OwnedCourses),
		TaughtCourses:   hexes(doc.TaughtCourses),
		EnrolledCourses: hexes(doc.EnrolledCourses),
	}, nil
}

// CreateCourse inserts a course document. An empty owner is left out of the document.
func (db *MongoDB) CreateCourse(ctx context.Context, course *models.Course) (string, error) {
	owner, err := optionalObjectID(course.OwnerID)
	if err != nil {
		return "", fmt.Errorf("owner id: %w", err)
	}
	teacher, err := optionalObjectID(course.TeacherID)
	if err != nil {
		return "", fmt.Errorf("teacher id: %w", err)
	}
	students, err := objectIDs(course.StudentIDs)
	if err != nil {
		return "", fmt.Errorf("student ids: %w", err)
	}

	inserted, err := db.courses.InsertOne(ctx, courseDocument{
		Name:        course.Name,
		Description: course.Description,
		Owner:       owner,
		Teacher:     teacher,
		Students:    students,
	})
	if err != nil {
		return "", classifyError(err)
	}

	return insertedIDHex(inserted)
}

// GetCourses returns every course in the collection's natural order.
func (db *MongoDB) GetCourses(ctx context.Context) ([]models.Course, error) {
	cursor, err := db.courses.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	var docs []courseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	result := make([]models.Course, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}

	return result, nil
}

// GetCourseByName fetches a course by exact name match.
func (db *MongoDB) GetCourseByName(ctx context.Context, name string) (*models.Course, error) {
	var doc courseDocument
	if err := db.courses.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	course := doc.toModel()

	return &course, nil
}

// AttachOwnedCourses adds course ids to each owner's ownedCourses set in one bulk write.
func (db *MongoDB) AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error {
	writes := make([]mongo.WriteModel, 0, len(usersCourses))
	for userID, courseIDs := range usersCourses {
		userObjectID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			continue
		}
		courseObjectIDs, err := objectIDs(courseIDs)
		if err != nil || len(courseObjectIDs) == 0 {
			continue
		}
		writes = append(
			writes,
			mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": userObjectID}).
				SetUpdate(bson.M{"$addToSet": bson.M{"ownedCourses": bson.M{"$each": courseObjectIDs}}}),
		)
	}
	if len(writes) == 0 {
		return nil
	}

	_, err := db.users.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))

	return err
}

func (db *MongoDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.users.CountDocuments(ctx, bson.D{})
}

func (db *MongoDB) GetNumberOfCourses(ctx context.Context) (int64, error) {
	return db.courses.CountDocuments(ctx, bson.D{})
}

// Ping checks the primary within the configured timeout.
func (db *MongoDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(ctxWithTimeout, nil)
}

// Close disconnects the client.
func (db *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(ctx)
}

// DropAll removes both collections. It is meant for test setups.
func (db *MongoDB) DropAll(ctx context.Context) error {
	if err := db.users.Drop(ctx); err != nil {
		return err
	}
	if err := db.courses.Drop(ctx); err != nil {
		return err
	}

	return db.ensureIndexes(ctx)
}

func (doc courseDocument) toModel() models.Course {
	course := models.Course{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		Description: doc.Description,
		StudentIDs:  hexes(doc.Students),
	}
	if doc.Owner != nil {
		course.OwnerID = doc.Owner.Hex()
	}
	if doc.Teacher != nil {
		course.TeacherID = doc.Teacher.Hex()
	}

	return course
}

// classifyError maps the server's duplicate key error (code 11000) to storage.ErrDuplicateKey.
func classifyError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)
	}

	return err
}

func insertedIDHex(inserted *mongo.InsertOneResult) (string, error) {
	objectID, ok := inserted.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", inserted.InsertedID)
	}

	return objectID.Hex(), nil
}

func optionalObjectID(id string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	return &objectID, nil
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	result := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		result = append(result, objectID)
	}

	return result, nil
}

func hexes(ids []primitive.ObjectID) []string {
	if len(ids) == 0 {
		return nil
	}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.Hex())
	}

	return result
}
