package ports

type Topic = string

// Event describes one asset in one build.
// Only BuildID is set for TopicBuildFinished,
// plus Err when the build was aborted before upload.
type Event struct {
	Topic    Topic
	BuildID  string
	FileName string
	Key      string
	Size     int64
	Err      error
}

type EventBus interface {
	Shutdown()
	Pub(Topic, Event)
	Sub(...Topic) chan Event
	Unsub(chan Event)
}

const (
	TopicAssetTracked  Topic = "asset-tracked"
	TopicAssetUploaded Topic = "asset-uploaded"
	TopicAssetSkipped  Topic = "asset-skipped"
	TopicAssetFailed   Topic = "asset-failed"
	TopicBuildFinished Topic = "build-finished"
	TopicTriggerFired  Topic = "trigger-fired"
)
