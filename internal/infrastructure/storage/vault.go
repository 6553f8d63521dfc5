package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/pkg/crypto"
)

var generateKey = func() (string, error) {
	return crypto.GenerateRandomToken(16)
}

// LocalVault stores identity documents on the local filesystem and hands out
// opaque references under a public base URL.
type LocalVault struct {
	dir      string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewLocalVault creates the vault directory if needed. maxBytes <= 0 disables
// the size limit.
func NewLocalVault(dir, publicBaseURL string, maxBytes int64) (*LocalVault, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("vault directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &LocalVault{
		dir:      dir,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Upload stores r under a fresh key and returns its reference.
func (v *LocalVault) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := generateKey()
	if err != nil {
		return "", err
	}
	key := path.Join(v.now().UTC().Format("2006/01/02"), token+sanitizeExt(name))
	target := filepath.Join(v.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create vault directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create vault object: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if v.maxBytes > 0 {
		src = io.LimitReader(r, v.maxBytes+1)
	}
	written, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write vault object: %w", err)
	}
	if v.maxBytes > 0 && written > v.maxBytes {
		return "", domainerrors.Validation(fmt.Sprintf("document %s exceeds %d bytes", name, v.maxBytes))
	}
	if written == 0 {
		return "", domainerrors.Validation(fmt.Sprintf("document %s is empty", name))
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store vault object: %w", err)
	}
	return v.baseURL + "/" + key, nil
}

// sanitizeExt keeps a short alphanumeric extension from the client file name.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
