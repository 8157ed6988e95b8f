package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/Masterminds/sprig/v3"
)

// Template globs, relative to the template root.
var templatePatterns = []string{"*.tmpl", "pages/*.tmpl", "partials/*.tmpl"}

// TemplateRenderer executes the console's html/template set.
type TemplateRenderer struct {
	set    *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig configures NewTemplateRenderer. TemplateFS is required.
type TemplateRendererConfig struct {
	TemplateFS fs.FS
	Logger     *slog.Logger
}

// NewTemplateRenderer parses the template set with sprig's functions plus renderSection.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	r := &TemplateRenderer{logger: cfg.Logger}

	set, err := template.New("root").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{"renderSection": r.renderSection}).
		ParseFS(cfg.TemplateFS, templatePatterns...)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("template parsing failed", slog.Any("error", err))
		}
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.set = set
	return r, nil
}

// renderSection executes the content template for page inside the layout.
func (r *TemplateRenderer) renderSection(page string, data any) (template.HTML, error) {
	if r.set == nil {
		return "", errors.New("template not initialized")
	}
	buf, err := r.execute(ContentTemplateFor(page), data)
	if err != nil {
		return "", fmt.Errorf("render section %s: %w", page, err)
	}
	// #nosec G203 - output of our own html/template set, already escaped.
	return template.HTML(buf.String()), nil
}

// execute renders name into a buffer so a failing template never leaks a half-written fragment.
func (r *TemplateRenderer) execute(name string, data any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := r.set.ExecuteTemplate(&buf, name, data); err != nil {
		if r.logger != nil {
			r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		}
		return nil, err
	}
	return &buf, nil
}

// RenderFull writes the whole page shell as HTML.
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, _ *http.Request, data any) error {
	buf, err := r.execute("layout", data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

// ExecuteTo writes the named template to w and leaves headers alone.
func (r *TemplateRenderer) ExecuteTo(w io.Writer, name string, data any) error {
	buf, err := r.execute(name, data)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
