// Package storage хранит файлы пикеров: изображения и сами артефакты.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Виды сохраняемых файлов.
const (
	KindImage    = "images"
	KindArtifact = "pickers"
)

// ErrNotFound возвращается, если файл отсутствует в хранилище.
var ErrNotFound = errors.New("object not found")

// ArtifactStore сохраняет загруженные файлы и отдаёт их клиенту.
type ArtifactStore interface {
	// Save сохраняет содержимое r и возвращает путь, по которому файл
	// можно получить через Serve.
	Save(ctx context.Context, kind, name string, r io.Reader) (string, error)
	// Serve отдаёт файл клиенту.
	Serve(w http.ResponseWriter, r *http.Request, key string) error
}

// objectKey строит ключ вида kind/<uuid>_<name>. Из name остаётся только
// базовое имя, поэтому выйти за пределы каталога kind нельзя.
func objectKey(kind, name string) (string, error) {
	switch kind {
	case KindImage, KindArtifact:
	default:
		return "", fmt.Errorf("unknown object kind %q", kind)
	}

	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return kind + "/" + uuid.NewString() + "_" + base, nil
}

// cleanKey проверяет, что ключ относительный и не содержит переходов вверх.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", fmt.Errorf("%w: invalid key %q", ErrNotFound, key)
	}
	return cleaned, nil
}

// downloadName возвращает имя файла для заголовка Content-Disposition
// без уникального префикса.
func downloadName(key string) string {
	base := path.Base(key)
	if _, rest, ok := strings.Cut(base, "_"); ok && rest != "" {
		return rest
	}
	return base
}
