package errors

// The Application return code errors
const (
	RetLoadConfigError         = 10
	RetCreateProviderError     = 11
	RetCreateInputWatcherError = 17
	RetBuildError              = 30
)
