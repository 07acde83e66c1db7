// Package view renders the HTML pages of the portal from embedded templates.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

const (
	Index     = "index"
	Login     = "login"
	Register  = "register"
	Profile   = "profile"
	AddCourse = "add-course"
)

// ErrUnknownTemplate is returned by Render for a name it was not built with.
var ErrUnknownTemplate = errors.New("unknown template")

//go:embed templates/*.html
var templatesFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title     string
	User      *user.User
	Courses   []models.Course
	NoCourses bool
}

// Renderer holds one parsed template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	renderer := &Renderer{pages: map[string]*template.Template{}}

	for _, name := range []string{Index, Login, Register, Profile, AddCourse} {
		page, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("in internal/view/view.go/New(): error while `template.ParseFS()` calling for %q: %w", name, err)
		}
		renderer.pages[name] = page
	}

	return renderer, nil
}

// Render executes the named page into w. Output is buffered, so nothing is
// written when execution fails.
func (r *Renderer) Render(w io.Writer, name string, data Page) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("in internal/view/view.go/Render(): error while `page.ExecuteTemplate()` calling: %w", err)
	}

	_, err := buf.WriteTo(w)
	return err
}
