package models

// HostContext identifies the bundle entry referencing an asset.
// It is carried through unchanged from rewrite to manifest.
type HostContext struct {
	HostID   string
	HostType string
}
