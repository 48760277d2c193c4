package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/pkg/errors"
)

// FileRepo keeps the session keys in a single JSON file so a login survives
// between CLI invocations.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

var _ Repo = (*FileRepo)(nil)

func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("[NewFileRepo] path is required")
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", clienterrors.ErrNotFound
	}
	return v, nil
}

func (r *FileRepo) Set(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	values[key] = value
	return r.write(values)
}

func (r *FileRepo) Remove(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.write(values)
}

func (r *FileRepo) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo] read")
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "[FileRepo] decode")
	}
	return values, nil
}

// write replaces the file atomically through a temp file in the same folder.
func (r *FileRepo) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo] encode")
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileRepo] mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[FileRepo] temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileRepo] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileRepo] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileRepo] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), r.path), "[FileRepo] rename")
}
