package internal

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sync"
)

//go:embed templates/*.tmpl
var shellFS embed.FS

// ShellLoader loads the page templates once. A failed load is not
// remembered, so the next page view tries again.
type ShellLoader struct {
	dir string

	mu  sync.Mutex
	tpl *template.Template
}

// NewShellLoader reads templates from dir, or the built-in set when dir is empty.
func NewShellLoader(dir string) *ShellLoader {
	return &ShellLoader{dir: dir}
}

func (s *ShellLoader) Load(ctx context.Context) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tpl != nil {
		return s.tpl, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		tpl *template.Template
		err error
	)
	if s.dir != "" {
		if _, statErr := os.Stat(s.dir); statErr != nil {
			return nil, fmt.Errorf("template dir: %w", statErr)
		}
		tpl, err = template.ParseGlob(filepath.Join(s.dir, "*.tmpl"))
	} else {
		tpl, err = template.ParseFS(shellFS, "templates/*.tmpl")
	}
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	if tpl.Lookup("dashboard") == nil {
		return nil, fmt.Errorf("page templates: no \"dashboard\" template defined")
	}
	s.tpl = tpl
	return tpl, nil
}

// ListSection is one rendered list on the page.
type ListSection struct {
	Entity  EntityType
	Heading string
	Nodes   []NodeView
	Error   string
}

type PageData struct {
	LoggedIn bool
	Lists    []ListSection
}

func RenderPage(w io.Writer, tpl *template.Template, data PageData) error {
	return tpl.ExecuteTemplate(w, "dashboard", data)
}

// The fatal page cannot depend on the shell templates it reports on.
var fatalTpl = template.Must(template.New("fatal").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Plex Admin - error</title></head>
<body>
<div role="alertdialog" aria-modal="true" id="fatal-error">
<h1>Unable to load the dashboard</h1>
<p>{{.}}</p>
</div>
</body>
</html>
`))

func RenderFatal(w io.Writer, message string) error {
	return fatalTpl.Execute(w, message)
}

func listHeading(entity EntityType) string {
	switch entity {
	case EntityShows:
		return "Shows"
	case EntityMovies:
		return "Movies"
	case EntityDownloads:
		return "Downloads"
	}
	return string(entity)
}
