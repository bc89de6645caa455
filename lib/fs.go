package lib

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/afero"
)

// NoSuchFile return true if file name does not exists
func NoSuchFile(fs afero.Fs, name string) bool {
	if _, err := fs.Stat(name); errors.Is(err, os.ErrNotExist) {
		return true
	}
	return false
}

// FileSize returns size of file or zero
func FileSize(fs afero.Fs, name string) int64 {
	fi, err := fs.Stat(name)
	if err != nil {
		return 0

	}
	return fi.Size()
}

// CopyFile copies content of oldname from src to newname at dst.
// Parent directories of newname are created as needed.
func CopyFile(src afero.Fs, oldname string, dst afero.Fs, newname string) (int64, error) {
	in, err := src.Open(oldname)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := WriteFile(dst, newname, nil); err != nil {
		return 0, err
	}
	out, err := dst.OpenFile(newname, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
