package disk

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
	"github.com/spf13/afero"
)

// DirBundle exposes already written build output directory
// as the bundle of emitted assets.
type DirBundle struct {
	log    ports.Logger
	fs     ports.FS
	outDir string
	names  []string
}

// NewDirBundle scans outDir (must be absolute) for regular files
func NewDirBundle(log ports.Logger, f ports.FS, outDir string) (*DirBundle, error) {
	if !lib.IsAbs(outDir) {
		return nil, errors.ErrMustBeAbsPath
	}
	if exist, _ := afero.DirExists(f, outDir); !exist {
		return nil, lib.ErrNoSuchDirectory{Path: outDir}
	}

	b := &DirBundle{
		log:    log.With(slog.String("entity", "DirBundle"), slog.String("outDir", outDir)),
		fs:     f,
		outDir: outDir,
	}
	w := NewFilepathWalk(f)
	err := w.Walk(outDir, func(name string, info fs.FileInfo, err error) (bool, error) {
		if err != nil {
			b.log.Warn("walk error", slog.String("name", name), slog.Any("err", err))
			return true, nil
		}
		if !info.Mode().IsRegular() {
			return true, nil
		}
		rel, err := filepath.Rel(outDir, name)
		if err != nil {
			return true, nil
		}
		b.names = append(b.names, filepath.ToSlash(rel))
		return true, nil
	})
	sort.Strings(b.names)
	return b, err
}

func (b *DirBundle) OutDir() string {
	return b.outDir
}

// FileNames returns all output file names relative to outDir
func (b *DirBundle) FileNames() []string {
	return b.names
}

func (b *DirBundle) Path(fileName string) string {
	return filepath.Join(b.outDir, filepath.FromSlash(fileName))
}

func (b *DirBundle) ReadFile(fileName string) ([]byte, error) {
	return afero.ReadFile(b.fs, b.Path(fileName))
}

func (b *DirBundle) WriteFile(fileName string, data []byte) error {
	if !lib.IsSecureFileName(fileName) {
		return errors.ErrUnsecureFileName
	}
	return lib.WriteFile(b.fs, b.Path(fileName), data)
}

// Assets returns all files with content.
// Unreadable files are logged and left out.
func (b *DirBundle) Assets() []ports.BundleAsset {
	assets := []ports.BundleAsset{}
	for _, name := range b.names {
		data, err := b.ReadFile(name)
		if err != nil {
			b.log.Warn("unable to read asset", slog.String("fileName", name), slog.Any("err", err))
			continue
		}
		assets = append(assets, ports.BundleAsset{FileName: name, Source: data})
	}
	return assets
}

// EmitAsset writes additional output file immediately,
// as the directory is considered written already.
func (b *DirBundle) EmitAsset(fileName string, source []byte) error {
	if err := b.WriteFile(fileName, source); err != nil {
		return err
	}
	b.log.Debug("asset emitted", slog.String("fileName", fileName), slog.Int("size", len(source)))
	for _, name := range b.names {
		if name == fileName {
			return nil
		}
	}
	b.names = append(b.names, fileName)
	sort.Strings(b.names)
	return nil
}
