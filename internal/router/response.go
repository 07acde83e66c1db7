package router

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/view"
)

const (
	textServerError  = "Ошибка сервера"
	textUserNotFound = "Пользователь не найден"
	textBadPassword  = "Неверный пароль"
)

// Response is what a handler decides. Each variant writes itself to the
// ResponseWriter through its write method.
type Response interface {
	write(w http.ResponseWriter, r *http.Request, renderer renderer)
}

// Render answers 200 with an HTML page.
type Render struct {
	Template string
	Data     view.Page
}

// Redirect answers 303 See Other.
type Redirect struct {
	Location string
}

// Status answers Code with a plain-text Body.
type Status struct {
	Code int
	Body string
}

// JSON answers Code with Body encoded as JSON.
type JSON struct {
	Code int
	Body any
}

func serverError() Status {
	return Status{Code: http.StatusInternalServerError, Body: textServerError}
}

func (resp Render) write(w http.ResponseWriter, r *http.Request, renderer renderer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Render(w, resp.Template, resp.Data); err != nil {
		logger.Log.Errorln("error while rendering", zap.String("template", resp.Template), zap.Error(err))
		serverError().write(w, r, renderer)
	}
}

func (resp Redirect) write(w http.ResponseWriter, r *http.Request, _ renderer) {
	http.Redirect(w, r, resp.Location, http.StatusSeeOther)
}

func (resp Status) write(w http.ResponseWriter, _ *http.Request, _ renderer) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.Code)
	if resp.Body == "" {
		return
	}
	if _, err := w.Write([]byte(resp.Body)); err != nil {
		logger.Log.Debugln("error while writing response", zap.Error(err))
	}
}

func (resp JSON) write(w http.ResponseWriter, _ *http.Request, _ renderer) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		logger.Log.Debugln("error while encoding response", zap.Error(err))
	}
}
