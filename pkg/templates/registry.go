package templates

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"leverguard/pkg/errors"
)

//go:embed assets/*/*.tmpl
var embeddedFS embed.FS

// Template IDs shipped with the binary
const (
	PositionRiskPrompt = "prompts/position_risk"
	CriticalAlert      = "notifications/critical_alert"
)

// Funcs are available to every template
var Funcs = template.FuncMap{
	// fixed renders a decimal with exactly n places
	"fixed": func(d decimal.Decimal, places int32) string { return d.StringFixed(places) },
	// comma renders a decimal with thousands separators
	"comma": func(d decimal.Decimal) string { return humanize.Commaf(d.InexactFloat64()) },
	"utc": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
}

// Template is a parsed template
type Template struct {
	ID      string
	Path    string
	Content string

	parsed *template.Template
}

// Render executes the template. Surrounding whitespace is trimmed.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render template %s", t.ID)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Registry holds loaded templates and resolves them by ID (path without .tmpl)
type Registry struct {
	fs        fs.FS
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRegistry loads all templates under basePath
func NewRegistry(basePath string) (*Registry, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.Wrap(err, "resolve template base path")
	}
	return NewRegistryFromFS(os.DirFS(absBase))
}

// NewRegistryFromFS loads all templates of filesystem
func NewRegistryFromFS(filesystem fs.FS) (*Registry, error) {
	r := &Registry{
		fs:        filesystem,
		templates: map[string]*Template{},
	}
	if err := r.loadAll(); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Get returns the registry of embedded templates. Panics if they fail to parse.
func Get() *Registry {
	defaultOnce.Do(func() {
		var sub fs.FS
		sub, defaultErr = fs.Sub(embeddedFS, "assets")
		if defaultErr == nil {
			defaultRegistry, defaultErr = NewRegistryFromFS(sub)
		}
	})

	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultRegistry
}

// GetTemplate retrieves a template by ID, loading it lazily if it appeared after startup
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[id]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	path := id + ".tmpl"
	if _, err := fs.Stat(r.fs, path); err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "template %s", id)
	}
	if err := r.loadTemplate(path); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[id], nil
}

// Render executes a template by ID
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, err := r.GetTemplate(id)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}

// List returns all known template IDs
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) loadAll() error {
	return fs.WalkDir(r.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".tmpl" {
			return nil
		}
		return r.loadTemplate(path)
	})
}

func (r *Registry) loadTemplate(path string) error {
	id := strings.TrimSuffix(filepath.ToSlash(path), ".tmpl")
	content, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return errors.Wrapf(err, "read template %s", id)
	}

	parsed, err := template.New(id).Funcs(Funcs).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return errors.Wrapf(err, "parse template %s", id)
	}

	r.mu.Lock()
	r.templates[id] = &Template{
		ID:      id,
		Path:    path,
		Content: string(content),
		parsed:  parsed,
	}
	r.mu.Unlock()
	return nil
}
