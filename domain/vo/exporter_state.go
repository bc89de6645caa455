package vo

// ExporterState is the build lifecycle position of the exporter.
// It only moves forward: configuring -> collecting -> finalizing.
type ExporterState int

const (
	ExporterIsConfiguring ExporterState = 0
	ExporterIsCollecting  ExporterState = 1
	ExporterIsFinalizing  ExporterState = 2
)

func (s ExporterState) String() string {
	switch s {
	case ExporterIsConfiguring:
		return "configuring"
	case ExporterIsCollecting:
		return "collecting"
	case ExporterIsFinalizing:
		return "finalizing"
	}
	return "unknown"
}
