// Package storage keeps uploaded poster images on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultExt = ".jpg"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// PosterStore writes posters into Dir under generated names of the form
// <sanitized-base>-<unix-millis><ext>.
type PosterStore struct {
	Dir string
	now func() time.Time
}

func NewPosterStore(dir string) *PosterStore {
	return &PosterStore{Dir: dir, now: time.Now}
}

// Save copies r into a new file and returns its name relative to Dir.  An
// existing file is never overwritten; the timestamp is bumped instead.
func (s *PosterStore) Save(originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create posters dir: %w", err)
	}
	base, ext := splitName(originalName)
	ms := s.now().UnixMilli()
	for {
		name := base + "-" + strconv.FormatInt(ms, 10) + ext
		f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ms++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create poster: %w", err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write poster: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("close poster: %w", err)
		}
		return name, nil
	}
}

// splitName sanitizes the client-supplied filename.  Directory components
// are dropped, the extension keeps its case and defaults to .jpg.
func splitName(original string) (base, ext string) {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ext = filepath.Ext(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if ext == "" || unsafeChars.MatchString(ext[1:]) {
		ext = defaultExt
	}
	base = unsafeChars.ReplaceAllString(name, "_")
	if base == "" {
		base = "poster"
	}
	return base, ext
}
