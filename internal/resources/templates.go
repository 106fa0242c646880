// Package resources loads the HTML templates of the auth pages, either from
// the copies built into the binary or from a directory that is watched and
// reloaded on change.
package resources

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"os"
	"sync"
)

//go:embed templates/*.html
var embedded embed.FS

var ErrTemplatesUnavailable = errors.New("templates unavailable")

type Templates struct {
	dir  string
	stop func() error

	mu   sync.RWMutex
	tmpl *template.Template
}

// LoadTemplates parses every *.html in dir, or the built-in templates when dir
// is empty.
func LoadTemplates(dir string) (*Templates, error) {
	t := &Templates{dir: dir}
	tmpl, err := t.parse()
	if err != nil {
		return nil, err
	}
	t.tmpl = tmpl
	log.Printf("Loaded templates from %s\n", t.source())
	return t, nil
}

// Watch reloads the templates whenever the directory changes. A failed reload
// keeps the last good set. Built-in templates are never watched.
func (t *Templates) Watch() error {
	if t.dir == "" {
		return nil
	}
	stop, err := watchDir(t.dir, t.reload)
	if err != nil {
		return err
	}
	t.stop = stop
	return nil
}

func (t *Templates) Close() error {
	if t.stop == nil {
		return nil
	}
	return t.stop()
}

func (t *Templates) Render(name string, data any) ([]byte, error) {
	t.mu.RLock()
	tmpl := t.tmpl
	t.mu.RUnlock()
	if tmpl == nil {
		return nil, ErrTemplatesUnavailable
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, name, data)
	return buf.Bytes(), err
}

func (t *Templates) reload() {
	tmpl, err := t.parse()
	if err != nil {
		log.Printf("Failed to parse templates from '%s': %v\n", t.source(), err)
		return
	}
	t.mu.Lock()
	t.tmpl = tmpl
	t.mu.Unlock()
	log.Printf("Reloaded templates from %s\n", t.source())
}

func (t *Templates) parse() (*template.Template, error) {
	var fsys fs.FS
	if t.dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(t.dir)
	}
	return template.ParseFS(fsys, "*.html")
}

func (t *Templates) source() string {
	if t.dir == "" {
		return "built-in templates"
	}
	return t.dir
}
