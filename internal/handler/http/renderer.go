// Package httphandler serves the user admin pages and the htmx partials that
// drive the table.
package httphandler

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// templatesRoot is the directory walked for *.html files. Template names are
// paths relative to it, e.g. "users/table.html".
const templatesRoot = "templates"

// TemplateRenderer implements echo.Renderer for HTML template rendering.
type TemplateRenderer struct {
	templates *template.Template
	mu        sync.RWMutex
	logger    *slog.Logger
	devMode   bool
	fs        fs.FS
}

// TemplateRendererConfig holds configuration for the template renderer.
type TemplateRendererConfig struct {
	// FS holds a "templates" directory. Usually web.TemplatesFS.
	FS fs.FS
	// Logger is the structured logger.
	Logger *slog.Logger
	// DevMode enables template reloading on each request.
	DevMode bool
}

// NewTemplateRenderer parses every template once and fails on the first error.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.FS == nil {
		return nil, fmt.Errorf("template renderer: nil filesystem")
	}

	r := &TemplateRenderer{
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
		fs:      cfg.FS,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *TemplateRenderer) loadTemplates() error {
	tmpl := template.New("").Funcs(TemplateFuncs())

	err := fs.WalkDir(r.fs, templatesRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}

		content, readErr := fs.ReadFile(r.fs, p)
		if readErr != nil {
			return readErr
		}

		name := strings.TrimPrefix(p, templatesRoot+"/")
		if _, parseErr := tmpl.New(name).Parse(string(content)); parseErr != nil {
			r.logger.Error("failed to parse template",
				slog.String("path", p),
				slog.String("error", parseErr.Error()))
			return parseErr
		}

		r.logger.Debug("loaded template", slog.String("name", name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}

// Render implements echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	// In dev mode, reload templates on each request
	if r.devMode {
		if err := r.loadTemplates(); err != nil {
			r.logger.Error("failed to reload templates", slog.String("error", err.Error()))
			return err
		}
	}

	r.mu.RLock()
	tmpl := r.templates
	r.mu.RUnlock()

	return tmpl.ExecuteTemplate(w, name, data)
}

// Has reports whether a template called name was loaded.
func (r *TemplateRenderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.Lookup(name) != nil
}
