package ports

import "github.com/spf13/afero"

type FS = afero.Fs
type File = afero.File
