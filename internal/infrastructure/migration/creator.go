package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
)

const upTemplate = `-- {{.Name}}
-- Created: {{.Created}}

`

const downTemplate = `-- {{.Name}} (rollback)
-- Created: {{.Created}}

`

// Entry is one migration found in a source directory.
type Entry struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// Complete reports whether both directions exist.
func (e Entry) Complete() bool {
	return e.HasUp && e.HasDown
}

// List parses the migration file names in dir and returns them by version.
// Files that do not follow the <version>_<name>.<up|down>.sql pattern are skipped.
func List(fsys fs.FS, dir string) ([]Entry, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		parsed, err := source.Parse(f.Name())
		if err != nil {
			continue
		}
		e, ok := byVersion[parsed.Version]
		if !ok {
			e = &Entry{Version: parsed.Version, Name: parsed.Identifier}
			byVersion[parsed.Version] = e
		}
		switch parsed.Direction {
		case source.Up:
			e.HasUp = true
		case source.Down:
			e.HasDown = true
		}
	}

	entries := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Created describes the file pair written by Create.
type Created struct {
	Version  uint
	UpPath   string
	DownPath string
}

// Create writes an empty up/down pair into dir, numbered one past the
// highest existing version.
func Create(dir, name string, now time.Time) (*Created, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if n := len(existing); n > 0 {
		version = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", version, slug)
	out := &Created{
		Version:  version,
		UpPath:   filepath.Join(dir, base+".up.sql"),
		DownPath: filepath.Join(dir, base+".down.sql"),
	}
	data := map[string]string{"Name": name, "Created": now.UTC().Format(time.RFC3339)}

	if err := writeTemplate(out.UpPath, upTemplate, data); err != nil {
		return nil, err
	}
	if err := writeTemplate(out.DownPath, downTemplate, data); err != nil {
		_ = os.Remove(out.UpPath)
		return nil, err
	}
	return out, nil
}

func writeTemplate(path, text string, data any) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// slugify lowercases name and joins words with single underscores.
func slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
