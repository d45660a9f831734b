package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var allowedUploadExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// LocalUploads stores price-board photos under a directory with random
// names; the caller's filename only contributes its extension.
type LocalUploads struct {
	dir string
}

func NewLocalUploads(dir string) (*LocalUploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create %s: %w", dir, err)
	}
	return &LocalUploads{dir: dir}, nil
}

func (u *LocalUploads) Dir() string { return u.dir }

// Save writes data and returns the stored file name.
func (u *LocalUploads) Save(_ context.Context, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedUploadExt[ext] {
		ext = ".jpg"
	}
	name := "upload_" + uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("uploads: write %s: %w", name, err)
	}
	return name, nil
}
