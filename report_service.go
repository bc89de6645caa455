package warpdrive

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/cloudcopper/warpdrive/ports"
)

// BuildReport is summary of one build
type BuildReport struct {
	BuildID  string
	Tracked  int
	Uploaded int
	Skipped  int
	Failed   int
	Bytes    uint64
}

// ReportService listening eventbus for asset events
// and logs the summary once build is finished.
type ReportService struct {
	log      ports.Logger
	bus      ports.EventBus
	chEvents chan ports.Event
	mu       sync.Mutex
	reports  map[string]*BuildReport
	finished []BuildReport
	closeWg  sync.WaitGroup
}

func NewReportService(log ports.Logger, bus ports.EventBus) *ReportService {
	log = log.With(slog.String("entity", "ReportService"))

	s := &ReportService{
		log: log,
		bus: bus,
		chEvents: bus.Sub(
			ports.TopicAssetTracked,
			ports.TopicAssetUploaded,
			ports.TopicAssetSkipped,
			ports.TopicAssetFailed,
			ports.TopicBuildFinished,
		),
		reports: map[string]*BuildReport{},
	}
	log.Info("created")

	s.closeWg.Add(1)
	go func() {
		defer s.closeWg.Done()
		log.Debug("process started")
		defer log.Debug("process complete")
		s.background()
	}()

	return s
}

func (s *ReportService) Close() {
	s.log.Info("closing")
	s.bus.Unsub(s.chEvents)
	s.closeWg.Wait()
}

// Finished returns reports of all finished builds
func (s *ReportService) Finished() []BuildReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BuildReport{}, s.finished...)
}

func (s *ReportService) report(buildID string) *BuildReport {
	r, ok := s.reports[buildID]
	if !ok {
		r = &BuildReport{BuildID: buildID}
		s.reports[buildID] = r
	}
	return r
}

func (s *ReportService) background() {
	for event := range s.chEvents {
		if event.Topic == ports.TopicBuildFinished {
			s.finish(event)
			continue
		}

		s.mu.Lock()
		r := s.report(event.BuildID)
		switch event.Topic {
		case ports.TopicAssetTracked:
			r.Tracked++
		case ports.TopicAssetUploaded:
			r.Uploaded++
			r.Bytes += uint64(event.Size)
		case ports.TopicAssetSkipped:
			r.Skipped++
		case ports.TopicAssetFailed:
			r.Failed++
			s.log.Debug("asset failed", slog.String("buildID", event.BuildID), slog.String("fileName", event.FileName), slog.Any("err", event.Err))
		}
		s.mu.Unlock()
	}
}

func (s *ReportService) finish(event ports.Event) {
	buildID := event.BuildID
	s.mu.Lock()
	r := *s.report(buildID)
	delete(s.reports, buildID)
	s.finished = append(s.finished, r)
	s.mu.Unlock()

	log := s.log.With(slog.String("buildID", buildID))
	if event.Err != nil {
		log.Warn("build aborted", slog.Int("tracked", r.Tracked), slog.Any("err", event.Err))
		return
	}
	if r.Tracked == 0 {
		log.Info("build finished, no remote assets")
		return
	}
	log.Info("build finished",
		slog.Int("tracked", r.Tracked),
		slog.Int("uploaded", r.Uploaded),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
		slog.String("bytes", humanize.IBytes(r.Bytes)),
	)
}
