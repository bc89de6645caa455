package models

// TrackedAsset is created once the asset passed inclusion filter
// and has got its public url. It is never mutated afterwards.
type TrackedAsset struct {
	FileName string `validate:"required"`
	Key      string `validate:"required"`
	URL      string `validate:"required"`
	Host     HostContext
}

// KeyFor returns remote key of fileName under prefix
func KeyFor(prefix, fileName string) string {
	if prefix == "" {
		return fileName
	}
	return prefix + "/" + fileName
}
