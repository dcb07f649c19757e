package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// File is one parsed migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	_, err := List(embedded, DefaultDir)
	return err
}

// ValidateFS checks the migrations in dir of fsys.
func ValidateFS(fsys fs.FS, dir string) error {
	_, err := List(fsys, dir)
	return err
}

// List parses every .sql file in dir, sorted by version. All problems are
// reported together: bad names, duplicate versions, and files missing a
// goose Up or Down annotation.
func List(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		files []File
		errs  error
	)
	byVersion := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		f, err := parseFile(fsys, dir, e.Name())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if prev, ok := byVersion[f.Version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %d in %q and %q", f.Version, prev, e.Name()))
			continue
		}
		byVersion[f.Version] = e.Name()
		files = append(files, f)
	}
	if errs != nil {
		return nil, errs
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func parseFile(fsys fs.FS, dir, name string) (File, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("invalid migration version in %q: %w", name, err)
	}

	p := path.Join(dir, name)
	body, err := fs.ReadFile(fsys, p)
	if err != nil {
		return File{}, fmt.Errorf("read file %q: %w", name, err)
	}
	text := string(body)
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(text, marker) {
			err = multierr.Append(err, fmt.Errorf("migration %q missing %q", name, marker))
		}
	}
	if err != nil {
		return File{}, err
	}
	return File{Version: version, Name: m[2], Path: p}, nil
}
