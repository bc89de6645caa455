package ports

// BundleAsset is single emitted output file of type asset.
// The FileName is relative to the build output directory.
type BundleAsset struct {
	FileName string
	Source   []byte
}

// Bundle is what the host build tool exposes at bundle generation time
type Bundle interface {
	Assets() []BundleAsset
	EmitAsset(fileName string, source []byte) error
}
