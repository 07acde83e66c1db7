// Package router wires the HTTP surface of the portal: pages, form
// endpoints, the session guard and the operational endpoints.
package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/schoolproject/internal/auth"
	"github.com/patric-chuzhbe/schoolproject/internal/gzippedhttp"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/service"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
	"github.com/patric-chuzhbe/schoolproject/internal/view"
)

const indexTitle = "Главная страница"

const (
	logUserLookupFailed   = "Ошибка при получении пользователя из базы данных"
	logCoursesFetchFailed = "Ошибка при получении курсов из базы данных"
	logRegisterFailed     = "Ошибка при регистрации пользователя"
	logUserExists         = "Пользователь с таким именем или email уже существует"
	logAuthFailed         = "Ошибка при входе пользователя"
	logCourseSaveFailed   = "Ошибка при создании и сохранении курса в базе данных"
	logCourseExists       = "Курс с таким именем уже существует"
)

type coursePortal interface {
	Register(ctx context.Context, request models.RegisterRequest) (string, error)

	Authenticate(ctx context.Context, request models.LoginRequest) (*user.User, error)

	CurrentUser(ctx context.Context, userID string) (*user.User, error)

	ListCourses(ctx context.Context) ([]models.Course, error)

	CreateCourse(ctx context.Context, ownerID string, request models.CreateCourseRequest) (string, error)

	Profile(ctx context.Context, userID string) (*user.User, []models.Course, error)

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler

	SetSession(response http.ResponseWriter, userID string) error

	ClearSession(response http.ResponseWriter)
}

type renderer interface {
	Render(w io.Writer, name string, data view.Page) error
}

type subnetGuard interface {
	Middleware(h http.Handler) http.Handler
}

type handler func(w http.ResponseWriter, r *http.Request) Response

type Router struct {
	svc      coursePortal
	auth     authenticator
	renderer renderer
}

type InitOption func(*initOptions)

type initOptions struct {
	staticDir   string
	subnetGuard subnetGuard
}

// WithStaticDir serves dir under /static/ when it exists.
func WithStaticDir(dir string) InitOption {
	return func(options *initOptions) {
		options.staticDir = dir
	}
}

// WithSubnetGuard exposes /api/internal/stats behind guard. Without it the
// endpoint is not routed.
func WithSubnetGuard(guard subnetGuard) InitOption {
	return func(options *initOptions) {
		options.subnetGuard = guard
	}
}

func New(
	svc coursePortal,
	authMiddleware authenticator,
	pageRenderer renderer,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	theRouter := &Router{
		svc:      svc,
		auth:     authMiddleware,
		renderer: pageRenderer,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		gzippedhttp.UngzipRequest,
		middleware.Compress(5, "text/html", "text/plain", "text/css", "application/json"),
	)

	router.Get(`/ping`, theRouter.serve(theRouter.getPing))

	if options.subnetGuard != nil {
		router.With(options.subnetGuard.Middleware).
			Get(`/api/internal/stats`, theRouter.serve(theRouter.getApiinternalstats))
	}

	if options.staticDir != "" {
		if info, err := os.Stat(options.staticDir); err == nil && info.IsDir() {
			router.Handle(`/static/*`, http.StripPrefix("/static/", http.FileServer(http.Dir(options.staticDir))))
		} else {
			logger.Log.Infoln("static directory is not available, /static/ is not served", zap.String("dir", options.staticDir))
		}
	}

	router.Group(func(router chi.Router) {
		router.Use(authMiddleware.AuthenticateUser)

		router.Get(`/`, theRouter.serve(theRouter.getRoot))
		router.Get(`/login`, theRouter.serve(theRouter.getLogin))
		router.Get(`/register`, theRouter.serve(theRouter.getRegister))
		router.Get(`/profile`, theRouter.serve(theRouter.getProfile))
		router.Get(`/add-course`, theRouter.serve(theRouter.getAddcourse))
		router.Get(`/logout`, theRouter.serve(theRouter.getLogout))
		router.Post(`/reg`, theRouter.serve(theRouter.postReg))
		router.Post(`/auth`, theRouter.serve(theRouter.postAuth))
		router.Post(`/create-course`, theRouter.serve(theRouter.postCreatecourse))
	})

	return router
}

func (theRouter *Router) serve(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r).write(w, r, theRouter.renderer)
	}
}

// logStoreError logs a duplicate key as a warning naming the conflict and any
// other store failure as an error.
func logStoreError(message, duplicateMessage string, err error) {
	if errors.Is(err, service.ErrDuplicateKey) {
		logger.Log.Warnln(message+": "+duplicateMessage, zap.Error(err))
		return
	}
	logger.Log.Errorln(message, zap.Error(err))
}

func (theRouter *Router) getRoot(w http.ResponseWriter, r *http.Request) Response {
	userID, present := auth.UserIDFromContext(r.Context())
	if !present {
		return Redirect{Location: "/login"}
	}

	usr, err := theRouter.svc.CurrentUser(r.Context(), userID)
	if errors.Is(err, service.ErrNotFound) {
		return Status{Code: http.StatusNotFound, Body: textUserNotFound}
	}
	if err != nil {
		logger.Log.Errorln(logUserLookupFailed, zap.Error(err))
		return serverError()
	}

	courses, err := theRouter.svc.ListCourses(r.Context())
	if err != nil {
		logger.Log.Errorln(logCoursesFetchFailed, zap.Error(err))
		return serverError()
	}

	return Render{
		Template: view.Index,
		Data: view.Page{
			Title:     indexTitle,
			User:      usr,
			Courses:   courses,
			NoCourses: len(courses) == 0,
		},
	}
}

func (theRouter *Router) getLogin(w http.ResponseWriter, r *http.Request) Response {
	return Render{Template: view.Login, Data: view.Page{Title: "Вход"}}
}

func (theRouter *Router) getRegister(w http.ResponseWriter, r *http.Request) Response {
	return Render{Template: view.Register, Data: view.Page{Title: "Регистрация"}}
}

func (theRouter *Router) getAddcourse(w http.ResponseWriter, r *http.Request) Response {
	return Render{Template: view.AddCourse, Data: view.Page{Title: "Новый курс"}}
}

func (theRouter *Router) getProfile(w http.ResponseWriter, r *http.Request) Response {
	page := view.Page{Title: "Профиль"}

	userID, present := auth.UserIDFromContext(r.Context())
	if !present {
		return Render{Template: view.Profile, Data: page}
	}

	usr, courses, err := theRouter.svc.Profile(r.Context(), userID)
	switch {
	case errors.Is(err, service.ErrNotFound):
	case err != nil:
		logger.Log.Errorln(logUserLookupFailed, zap.Error(err))
		return serverError()
	default:
		page.User = usr
		page.Courses = courses
	}

	return Render{Template: view.Profile, Data: page}
}

func (theRouter *Router) getLogout(w http.ResponseWriter, r *http.Request) Response {
	theRouter.auth.ClearSession(w)

	return Redirect{Location: "/login"}
}

func (theRouter *Router) postReg(w http.ResponseWriter, r *http.Request) Response {
	if err := r.ParseForm(); err != nil {
		logger.Log.Debugln("error while parsing the registration form", zap.Error(err))
		return serverError()
	}

	_, err := theRouter.svc.Register(r.Context(), models.RegisterRequest{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		logStoreError(logRegisterFailed, logUserExists, err)
		return serverError()
	}

	return Redirect{Location: "/login"}
}

func (theRouter *Router) postAuth(w http.ResponseWriter, r *http.Request) Response {
	if err := r.ParseForm(); err != nil {
		logger.Log.Debugln("error while parsing the login form", zap.Error(err))
		return serverError()
	}

	usr, err := theRouter.svc.Authenticate(r.Context(), models.LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	switch {
	case errors.Is(err, service.ErrNotFound):
		return Status{Code: http.StatusNotFound, Body: textUserNotFound}
	case errors.Is(err, service.ErrInvalidCredentials):
		return Status{Code: http.StatusUnauthorized, Body: textBadPassword}
	case err != nil:
		logger.Log.Errorln(logAuthFailed, zap.Error(err))
		return serverError()
	}

	if err := theRouter.auth.SetSession(w, usr.ID); err != nil {
		logger.Log.Errorln("error while setting the session cookie", zap.Error(err))
		return serverError()
	}

	return Redirect{Location: "/"}
}

func (theRouter *Router) postCreatecourse(w http.ResponseWriter, r *http.Request) Response {
	userID, present := auth.UserIDFromContext(r.Context())
	if !present {
		return Redirect{Location: "/login"}
	}

	if err := r.ParseForm(); err != nil {
		logger.Log.Debugln("error while parsing the course form", zap.Error(err))
		return serverError()
	}

	_, err := theRouter.svc.CreateCourse(r.Context(), userID, models.CreateCourseRequest{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	})
	if errors.Is(err, service.ErrNotAuthenticated) {
		return Redirect{Location: "/login"}
	}
	if err != nil {
		logStoreError(logCourseSaveFailed, logCourseExists, err)
		return serverError()
	}

	return Redirect{Location: "/"}
}

func (theRouter *Router) getPing(w http.ResponseWriter, r *http.Request) Response {
	if err := theRouter.svc.Ping(r.Context()); err != nil {
		logger.Log.Debugln("storage ping failed", zap.Error(err))
		return Status{Code: http.StatusInternalServerError}
	}

	return Status{Code: http.StatusOK}
}

func (theRouter *Router) getApiinternalstats(w http.ResponseWriter, r *http.Request) Response {
	stats, err := theRouter.svc.GetInternalStats(r.Context())
	if err != nil {
		logger.Log.Errorln("error while collecting stats", zap.Error(err))
		return Status{Code: http.StatusInternalServerError}
	}

	return JSON{Code: http.StatusOK, Body: stats}
}
