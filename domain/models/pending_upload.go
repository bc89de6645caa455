package models

import (
	"github.com/cloudcopper/warpdrive/lib/types"
)

type PendingUploads []*PendingUpload

// PendingUpload is tracked asset confirmed present in the bundle
type PendingUpload struct {
	TrackedAsset
	LocalPath   string     `validate:"required,abspath"`
	ContentType string     `validate:"omitempty"`
	Size        types.Size `validate:"min=0"`
}

func (p *PendingUpload) ManifestEntry() ManifestEntry {
	return ManifestEntry{
		FileName: p.FileName,
		URL:      p.URL,
		Key:      p.Key,
		HostID:   p.Host.HostID,
		HostType: p.Host.HostType,
		Size:     int64(p.Size),
	}
}

// TotalSize returns sum of all pending upload sizes
func (a PendingUploads) TotalSize() types.Size {
	size := types.Size(0)
	for _, p := range a {
		size += p.Size
	}
	return size
}
