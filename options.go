package warpdrive

import (
	"context"

	"github.com/cloudcopper/warpdrive/ports"
)

// ContentTypeBy resolves content type of the asset given by file name
// relative to the output directory. An error is logged and the asset
// is uploaded without content type.
type ContentTypeBy func(ctx context.Context, fileName string) (string, error)

const DefaultPrefix = "remote-assets"

// Options of one Exporter.
// The zero value has no provider and so never rewrites anything.
type Options struct {
	// Provider is the remote storage. Nil means no-op mode.
	Provider ports.UploadProvider
	// Prefix of every remote key. Empty prefix disables remote clean.
	Prefix string
	// Include matchers. Empty set never includes anything.
	Include []Matcher
	// IncludeBy is the optional final say for matched files
	IncludeBy IncludeBy
	// ContentTypeBy is optional
	ContentTypeBy ContentTypeBy
	// Manifest enables remote-assets.manifest.json emission
	Manifest bool
	// Delete local copies of uploaded or skipped assets
	Delete bool
	// Clean the remote prefix before uploads
	Clean bool
	// DryRun only logs what would be uploaded
	DryRun bool
	// SkipNotModified asks provider whether remote copy is up to date
	SkipNotModified bool
}

func DefaultOptions() Options {
	return Options{
		Prefix:          DefaultPrefix,
		Manifest:        false,
		Delete:          true,
		Clean:           true,
		DryRun:          false,
		SkipNotModified: true,
	}
}
