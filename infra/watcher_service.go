package infra

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
)

// WatcherService watches the build output directory
// and publishes TopicTriggerFired once the trigger file
// is created or written, and no more changes within debounce.
type WatcherService struct {
	log      ports.Logger
	bus      ports.EventBus
	dir      string
	trigger  string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	closeWg  sync.WaitGroup
}

func NewWatcherService(log ports.Logger, bus ports.EventBus, dir, trigger string, debounce time.Duration) (*WatcherService, error) {
	log = log.With(slog.String("entity", "WatcherService"), slog.String("dir", dir), slog.String("trigger", trigger))
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &WatcherService{
		log:      log,
		bus:      bus,
		dir:      dir,
		trigger:  trigger,
		debounce: debounce,
		watcher:  watcher,
	}
	if err := s.addDir(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	log.Info("created")

	s.closeWg.Add(1)
	go func() {
		defer s.closeWg.Done()
		log.Info("process started")
		defer log.Warn("process complete")
		s.background()
	}()

	return s, nil
}

func (s *WatcherService) Close() {
	if s == nil {
		return
	}
	if s.watcher == nil {
		return
	}

	s.log.Info("closing")
	s.watcher.Close()
	s.closeWg.Wait()
	s.watcher = nil
}

func (s *WatcherService) addDir(path string) error {
	log := s.log
	if abspath, err := filepath.Abs(path); !lib.IsAbs(path) || abspath != path || err != nil {
		log.Error("add dir failed!!!", slog.Any("err", err), slog.String("path", path), slog.String("abspath", abspath))
		return errors.ErrMustBeAbsPath
	}
	log.Info("add dir", slog.String("path", path))
	err := s.watcher.Add(path)
	if err != nil {
		log.Error("add dir failed!!!", slog.Any("err", err), slog.String("path", path))
	}
	return err
}

func (s *WatcherService) background() {
	log, bus := s.log, s.bus
	triggerPath := filepath.Join(s.dir, s.trigger)

	// the timer is armed by the trigger events only
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case err, ok := <-s.watcher.Errors:
			if err != nil {
				log.Error("watcher error", slog.Any("err", err))
			}
			if !ok {
				return
			}
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			log.Debug("watcher event", slog.Any("event", event))
			if event.Name != triggerPath {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				timer.Reset(s.debounce)
			}
		case <-timer.C:
			log.Info("trigger fired")
			bus.Pub(ports.TopicTriggerFired, ports.Event{FileName: triggerPath})
		}
	}
}
