package uploads

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"
)

// DefaultURLPrefix is the path under which local uploads are served
const DefaultURLPrefix = "/uploads"

// FileSystemStore keeps uploads in a local directory
type FileSystemStore struct {
	Dir       string
	URLPrefix string
}

// NewFileSystemStore creates dir if needed
func NewFileSystemStore(dir, urlPrefix string) (*FileSystemStore, error) {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	if !fileutils.FileExists(dir) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrapf(err, "could not create upload directory '%s'", dir)
		}
	}
	return &FileSystemStore{
		Dir:       dir,
		URLPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Save implements Store
func (s *FileSystemStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	name = filepath.Base(name)
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", errors.Wrap(err, "could not create upload file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "could not write upload file")
	}
	if err = f.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Delete implements Store
func (s *FileSystemStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.URLPrefix+"/") {
		return nil
	}
	name := strings.TrimPrefix(url, s.URLPrefix+"/")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Errorf("invalid upload url '%s'", url)
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "could not delete upload file")
	}
	return nil
}
