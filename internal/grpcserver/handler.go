package grpcserver

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/patric-chuzhbe/schoolproject/internal/auth"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/service"
)

type courseCatalog interface {
	ListCourses(ctx context.Context) ([]models.Course, error)

	CreateCourse(ctx context.Context, ownerID string, request models.CreateCourseRequest) (string, error)

	Ping(ctx context.Context) error
}

type createCourseInput struct {
	Name        string `validate:"required"`
	Description string
}

type CourseCatalogHandler struct {
	svc      courseCatalog
	validate *validator.Validate
}

func NewCourseCatalogHandler(svc courseCatalog) *CourseCatalogHandler {
	return &CourseCatalogHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func courseToValue(course models.Course) map[string]interface{} {
	return map[string]interface{}{
		"id":          course.ID,
		"name":        course.Name,
		"description": course.Description,
		"owner_id":    course.OwnerID,
		"teacher_id":  course.TeacherID,
	}
}

func (h *CourseCatalogHandler) ListCourses(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	courses, err := h.svc.ListCourses(ctx)
	if err != nil {
		logger.Log.Errorln("error while listing courses", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to list courses")
	}

	values := make([]interface{}, 0, len(courses))
	for _, course := range courses {
		values = append(values, courseToValue(course))
	}

	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode courses")
	}

	return list, nil
}

func (h *CourseCatalogHandler) CreateCourse(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok || userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user ID")
	}

	input := createCourseInput{
		Name:        req.GetFields()["name"].GetStringValue(),
		Description: req.GetFields()["description"].GetStringValue(),
	}
	if err := h.validate.Struct(input); err != nil {
		return nil, status.Error(codes.InvalidArgument, "name must not be empty")
	}

	courseID, err := h.svc.CreateCourse(ctx, userID, models.CreateCourseRequest{
		Name:        input.Name,
		Description: input.Description,
	})
	switch {
	case err == nil:
		return wrapperspb.String(courseID), nil
	case errors.Is(err, service.ErrDuplicateKey):
		return nil, status.Error(codes.AlreadyExists, "course already exists")
	case errors.Is(err, service.ErrNotAuthenticated):
		return nil, status.Error(codes.Unauthenticated, "missing user ID")
	default:
		logger.Log.Errorln("error while creating a course", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to create course")
	}
}

func (h *CourseCatalogHandler) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := h.svc.Ping(ctx); err != nil {
		return nil, status.Error(codes.Unavailable, "storage is unavailable")
	}
	return &emptypb.Empty{}, nil
}
