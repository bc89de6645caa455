package adapters

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
)

// FsUploadProvider "uploads" assets into local directory root.
// It is served by some web server at publicBaseURL.
type FsUploadProvider struct {
	log             ports.Logger
	src             ports.FS
	dst             ports.FS
	root            string
	publicBaseURL   string
	checksum        ports.ChecksumAlgo
	skipNotModified bool
}

func NewFsUploadProvider(log ports.Logger, src, dst ports.FS, checksum ports.ChecksumAlgo, root, publicBaseURL string, skipNotModified bool) (*FsUploadProvider, error) {
	log = log.With(slog.String("entity", "FsUploadProvider"), slog.String("root", root))
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: %v", errors.ErrMustBeAbsPath, root)
	}
	if err := dst.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	p := &FsUploadProvider{
		log:             log,
		src:             src,
		dst:             dst,
		root:            root,
		publicBaseURL:   publicBaseURL,
		checksum:        checksum,
		skipNotModified: skipNotModified,
	}
	log.Info("created", slog.String("publicBaseURL", publicBaseURL))
	return p, nil
}

func (p *FsUploadProvider) remotePath(key string) (string, error) {
	if !lib.IsSecureFileName(key) {
		return "", fmt.Errorf("%w: %v", errors.ErrUnsecureFileName, key)
	}
	return filepath.Join(p.root, filepath.FromSlash(key)), nil
}

func (p *FsUploadProvider) PublicURL(key string) string {
	return lib.JoinURL(p.publicBaseURL, key)
}

func (p *FsUploadProvider) Upload(_ context.Context, localPath, key, contentType string) error {
	remote, err := p.remotePath(key)
	if err != nil {
		return err
	}
	n, err := lib.CopyFile(p.src, localPath, p.dst, remote)
	if err != nil {
		return fmt.Errorf("copy %s: %w", key, err)
	}
	p.log.Debug("uploaded", slog.String("key", key), slog.Int64("size", n), slog.String("contentType", contentType))
	return nil
}

func (p *FsUploadProvider) CleanPrefix(_ context.Context, prefix string) error {
	prefix = lib.TrimSlashes(prefix)
	if prefix == "" {
		return errors.ErrUnscopedPrefix
	}
	dir, err := p.remotePath(prefix)
	if err != nil {
		return err
	}
	if err := p.dst.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	p.log.Info("prefix cleaned", slog.String("prefix", prefix))
	return nil
}

func (p *FsUploadProvider) ShouldSkipUpload(_ context.Context, localPath, key string) (bool, error) {
	if !p.skipNotModified {
		return false, nil
	}
	remote, err := p.remotePath(key)
	if err != nil {
		return false, err
	}
	if lib.NoSuchFile(p.dst, remote) {
		return false, nil
	}
	if lib.FileSize(p.dst, remote) != lib.FileSize(p.src, localPath) {
		return false, nil
	}

	local, err := p.checksum.Sum(p.src, localPath)
	if err != nil {
		return false, err
	}
	stored, err := p.checksum.Sum(p.dst, remote)
	if err != nil {
		return false, err
	}
	return bytes.Equal(local, stored), nil
}
