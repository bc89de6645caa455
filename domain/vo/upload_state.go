package vo

type UploadState int

const (
	UploadIsPending UploadState = 0
	UploadIsDone    UploadState = 1
	UploadIsSkipped UploadState = 2
	UploadIsFailed  UploadState = 3
)

func (s UploadState) String() string {
	switch s {
	case UploadIsPending:
		return "pending"
	case UploadIsDone:
		return "uploaded"
	case UploadIsSkipped:
		return "skipped"
	case UploadIsFailed:
		return "failed"
	}
	return "unknown"
}

// CanDeleteLocal returns true only when the remote copy is known to be good
func (s UploadState) CanDeleteLocal() bool {
	return s == UploadIsDone || s == UploadIsSkipped
}
