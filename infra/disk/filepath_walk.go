package disk

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cloudcopper/warpdrive/ports"
	"github.com/spf13/afero"
)

type FilepathWalk struct {
	fs ports.FS
}

func NewFilepathWalk(f ports.FS) FilepathWalk {
	return FilepathWalk{f}
}

// Walk calls fn for every regular file under root.
// Hidden directories (.git, .cache etc) are not entered.
// The fn returns false to stop walking.
func (f *FilepathWalk) Walk(root string, fn func(name string, info fs.FileInfo, err error) (bool, error)) error {
	err := afero.Walk(f.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err == nil && info.IsDir() {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				return fs.SkipDir
			}
			return nil
		}
		ok, err := fn(path, info, err)
		if !ok {
			return fs.SkipAll
		}
		return err
	})
	return err
}
