package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Files implements IgnoreLists with one UTF-8 text file per user,
// one pattern per line.
type Files struct {
	dir string
}

// NewFiles returns a file-backed ignore list store rooted at dir, creating it if needed.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create ignore list directory: %w", err)
	}
	return &Files{dir: dir}, nil
}

// LoadIgnoreList reads the patterns file of identity.
func (f *Files) LoadIgnoreList(_ context.Context, identity string) ([]string, error) {
	path, err := f.path(identity)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is escaped and confined to f.dir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}

	var patterns []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ignore list: %w", err)
	}
	return patterns, nil
}

// SaveIgnoreList rewrites the patterns file of identity.
// The file is replaced atomically so readers never see a partial list.
func (f *Files) SaveIgnoreList(_ context.Context, identity string, patterns []string) error {
	path, err := f.path(identity)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, p := range patterns {
		if strings.ContainsAny(p, "\r\n") {
			return fmt.Errorf("pattern %q spans multiple lines", p)
		}
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("write ignore list: %w", err)
	}
	return nil
}

func (f *Files) path(identity string) (string, error) {
	name := url.PathEscape(identity)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid identity %q", identity)
	}
	return filepath.Join(f.dir, name), nil
}

func writeFileAtomic(name string, data []byte, perm fs.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
