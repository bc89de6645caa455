package ports

import "context"

// UploadProvider is the required part of a remote storage target.
// PublicURL must be pure and deterministic for a given key.
type UploadProvider interface {
	Upload(ctx context.Context, localPath, key, contentType string) error
	PublicURL(key string) string
}

// PrefixCleaner is optionally implemented by providers able to remove
// all objects under a key prefix.
type PrefixCleaner interface {
	CleanPrefix(ctx context.Context, prefix string) error
}

// UploadSkipper is optionally implemented by providers able to tell
// the remote object already has the local content.
type UploadSkipper interface {
	ShouldSkipUpload(ctx context.Context, localPath, key string) (bool, error)
}
