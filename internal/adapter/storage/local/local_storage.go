package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"go.uber.org/zap"
)

// Storage keeps images as flat files in a billy filesystem and exposes them
// under a public URL prefix.
type Storage struct {
	fs           billy.Filesystem
	publicPrefix string
	logger       *logger.Logger
}

// NewStorage wraps any billy filesystem. publicPrefix must match the route
// Handler is mounted on.
func NewStorage(fs billy.Filesystem, publicPrefix string, log *logger.Logger) *Storage {
	return &Storage{fs: fs, publicPrefix: asset.PublicPrefix(publicPrefix), logger: log.Named("LocalStorage")}
}

// NewOSStorage stores files under dir on the host filesystem.
func NewOSStorage(dir, publicPrefix string, log *logger.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	log.Info("Local image storage ready", zap.String("dir", dir), zap.String("public_prefix", publicPrefix))
	return NewStorage(osfs.New(dir), publicPrefix, log), nil
}

func (s *Storage) Kind() asset.Kind { return asset.KindLocal }

func (s *Storage) Put(ctx context.Context, u asset.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := asset.ObjectName(u.Filename)
	if err := util.WriteFile(s.fs, name, u.Data, 0o644); err != nil {
		s.logger.Error("Failed to write image", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Debug("Image stored", zap.String("name", name), zap.Int("size_bytes", len(u.Data)))
	return s.publicPrefix + name, nil
}

// Delete removes a file. A file that is already gone counts as deleted.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Handler serves stored files. Mount it with the public prefix stripped.
func (s *Storage) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}
		info, err := s.fs.Stat(name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		f, err := s.fs.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, name, info.ModTime(), f)
	})
}
