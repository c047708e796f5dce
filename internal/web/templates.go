// AngelaMos | 2026
// templates.go

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/carterperez-dev/tailorbook/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// markdown leaves raw HTML in message bodies escaped.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
	),
)

func renderMarkdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s)) //nolint:gosec // escaped above
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark output without WithUnsafe
}

var funcs = template.FuncMap{
	"rupees":   catalog.FormatRupees,
	"progress": catalog.Progress,
	"markdown": renderMarkdown,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"num": func(f *float64) string {
		if f == nil {
			return ""
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	},
	"price": func(f *float64) string {
		if f == nil {
			return "Not quoted"
		}
		return catalog.FormatRupees(*f)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"orderStatuses":       func() []string { return catalog.OrderStatuses },
	"urgencies":           func() []string { return catalog.Urgencies },
	"appointmentStatuses": func() []string { return catalog.AppointmentStatuses },
}

var pageNames = []string{"home", "login", "register", "book", "dashboard", "admin"}

type Templates struct {
	pages map[string]*template.Template
}

// ParseTemplates builds one template set per page on top of the shared
// layout and partials.
func ParseTemplates() (*Templates, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/partials.html",
	)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	t := &Templates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.pages[name] = clone
	}
	return t, nil
}

// Render writes a full page. Output is buffered so a template error never
// leaves half a page behind.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	return t.Fragment(w, page, "layout", data)
}

// Fragment writes one named template from a page's set.
func (t *Templates) Fragment(w io.Writer, page, name string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s/%s: %w", page, name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
