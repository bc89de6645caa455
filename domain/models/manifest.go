package models

const ManifestFileName = "remote-assets.manifest.json"

type Manifest struct {
	Assets []ManifestEntry `json:"assets"`
}

type ManifestEntry struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Key      string `json:"key"`
	HostID   string `json:"hostId,omitempty"`
	HostType string `json:"hostType,omitempty"`
	Size     int64  `json:"size"`
}
