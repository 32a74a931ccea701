// Package assetstore is the narrow contract over wherever compressed assets
// and thumbnails end up. The pipeline treats it purely as a sink: it never
// reads back what it uploaded.
package assetstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pressbox/internal/fileutil"
	"pressbox/internal/services"
)

// Store publishes local files under stable keys and answers their public
// URLs.
type Store interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	PublicURL(key string) string
}

// LocalStore serves a directory published by something else (nginx, a CDN
// sync job). Upload copies into the directory; PublicURL joins the key onto
// the configured base URL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore validates the target directory exists and is a directory.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assetstore", "new local store", "public directory must be set", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "assetstore", "new local store", "public directory is not accessible", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "assetstore", "new local store", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload copies localPath to key under the public directory. The copy is
// integrity-verified and goes through a temp file and a rename so readers
// never observe a partial or corrupted asset.
func (s *LocalStore) Upload(ctx context.Context, localPath, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "assetstore", "upload", "upload cancelled", err)
	}
	key = cleanKey(key)
	if key == "" {
		return "", services.Wrap(services.ErrConfiguration, "assetstore", "upload", "asset key must be set", nil)
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "assetstore", "upload", "failed to create asset directory", err)
	}

	tmpPath := fmt.Sprintf("%s.upload-%d", dest, os.Getpid())
	if err := fileutil.CopyVerified(localPath, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "assetstore", "upload", "failed to copy asset", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "assetstore", "upload", "failed to publish asset", err)
	}
	return s.PublicURL(key), nil
}

// PublicURL joins the key onto the base URL. With no base URL configured the
// filesystem path is returned so CLI output stays useful.
func (s *LocalStore) PublicURL(key string) string {
	key = cleanKey(key)
	if s.baseURL == "" {
		return filepath.Join(s.dir, filepath.FromSlash(key))
	}
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return s.baseURL + "/" + strings.Join(escaped, "/")
}

func cleanKey(key string) string {
	key = path.Clean(strings.TrimSpace(strings.Trim(key, "/")))
	if key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return ""
	}
	return key
}
