package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// LocalStore хранит файлы в каталоге на диске.
type LocalStore struct {
	root string
}

// NewLocalStore создаёт хранилище в каталоге root, создавая его при необходимости.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Save записывает файл на диск.
func (s *LocalStore) Save(ctx context.Context, kind, name string, r io.Reader) (string, error) {
	key, err := objectKey(kind, name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(full)
		return "", err
	}

	return key, nil
}

// Serve отдаёт файл как вложение.
func (s *LocalStore) Serve(w http.ResponseWriter, r *http.Request, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": downloadName(key)}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}
