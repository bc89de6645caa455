package errors

import (
	"errors"
	"fmt"

	"github.com/cloudcopper/warpdrive/lib"
)

const ErrMustBeAbsPath = lib.Error("must be absolute path")
const ErrUnsecureFileName = lib.Error("unsecure file name")
const ErrUnscopedPrefix = lib.Error("refuse to clean unscoped prefix")
const ErrUnknownProviderKind = lib.Error("unknown provider kind")
const ErrNoBucket = lib.Error("no bucket in provider config")
const ErrNoETag = lib.Error("no etag")
const ErrMalformedETag = lib.Error("malformed etag")
const ErrMultipartETag = lib.Error("multipart etag")
const ErrWrongExporterState = lib.Error("wrong exporter state")

type ErrUploadFailed struct {
	FileName string
	Key      string
	Err      error
}

func (e ErrUploadFailed) Error() string {
	return fmt.Sprintf("upload %v to %v failed: %v", e.FileName, e.Key, e.Err)
}

func (e ErrUploadFailed) Unwrap() error {
	return e.Err
}

var Is = errors.Is
var As = errors.As
