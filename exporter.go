package warpdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/domain/models"
	"github.com/cloudcopper/warpdrive/domain/vo"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/lib/types"
	"github.com/cloudcopper/warpdrive/ports"
)

// Exporter drives remote upload of assets for exactly one build.
// The host build tool calls ConfigResolved, then RenderURL for every
// asset reference, then GenerateBundle once all assets are emitted,
// and finally CloseBundle once the output directory is written.
type Exporter struct {
	log     ports.Logger
	fs      ports.FS
	bus     ports.EventBus
	opts    Options
	filter  *Filter
	buildID string

	mu      sync.Mutex
	state   vo.ExporterState
	outDir  string
	tracked map[string]models.TrackedAsset
	pending models.PendingUploads
	cleaned bool
}

// NewExporter creates exporter for new build.
// The bus is optional.
func NewExporter(log ports.Logger, f ports.FS, bus ports.EventBus, opts Options) *Exporter {
	buildID := ulid.Make().String()
	log = log.With(slog.String("entity", "Exporter"), slog.String("buildID", buildID))

	e := &Exporter{
		log:     log,
		fs:      f,
		bus:     bus,
		opts:    opts,
		filter:  NewFilter(opts.Include, opts.IncludeBy),
		buildID: buildID,
		state:   vo.ExporterIsConfiguring,
		tracked: map[string]models.TrackedAsset{},
	}
	if opts.Provider == nil {
		log.Warn("no upload provider, assets stay local")
	}
	log.Debug("created", slog.String("prefix", opts.Prefix), slog.Int("matchers", len(opts.Include)))
	return e
}

func (e *Exporter) BuildID() string {
	return e.buildID
}

func (e *Exporter) State() vo.ExporterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Tracked returns copy of the tracking map
func (e *Exporter) Tracked() map[string]models.TrackedAsset {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := make(map[string]models.TrackedAsset, len(e.tracked))
	for k, v := range e.tracked {
		m[k] = v
	}
	return m
}

func (e *Exporter) publish(topic ports.Topic, event ports.Event) {
	if e.bus == nil {
		return
	}
	event.BuildID = e.buildID
	e.bus.Pub(topic, event)
}

// ConfigResolved records the output directory of the build.
// An empty outDir is accepted, but then no asset is uploaded.
func (e *Exporter) ConfigResolved(outDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != vo.ExporterIsConfiguring {
		return fmt.Errorf("%w: config resolved while %v", errors.ErrWrongExporterState, e.state)
	}

	if outDir == "" {
		e.log.Warn("no output directory resolved")
	} else {
		abs, err := filepath.Abs(outDir)
		if err != nil {
			return err
		}
		outDir = abs
	}
	e.outDir = outDir
	e.state = vo.ExporterIsCollecting
	e.log.Debug("config resolved", slog.String("outDir", outDir))
	return nil
}

// RenderURL returns public url of the asset, when the asset
// is selected for remote upload. Otherwise it returns false and
// the host shall leave the reference as is.
func (e *Exporter) RenderURL(fileName string, host models.HostContext) (string, bool) {
	if !e.filter.Include(fileName, host) {
		return "", false
	}
	if e.opts.Provider == nil {
		return "", false
	}
	if !lib.IsSecureFileName(fileName) {
		e.log.Warn("asset name leaves output directory", slog.String("fileName", fileName))
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == vo.ExporterIsFinalizing {
		e.log.Warn("asset referenced after bundle generation", slog.String("fileName", fileName))
		return "", false
	}

	key := models.KeyFor(lib.TrimSlashes(e.opts.Prefix), fileName)
	url := e.opts.Provider.PublicURL(key)
	if prev, ok := e.tracked[fileName]; ok && prev.Host != host {
		e.log.Debug("asset tracked again", slog.String("fileName", fileName), slog.String("prevHostID", prev.Host.HostID), slog.String("hostID", host.HostID))
	}
	e.tracked[fileName] = models.TrackedAsset{
		FileName: fileName,
		Key:      key,
		URL:      url,
		Host:     host,
	}
	return url, true
}

// GenerateBundle turns tracked assets present in the bundle into
// pending uploads, and optionally emits the manifest.
func (e *Exporter) GenerateBundle(ctx context.Context, bundle ports.Bundle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := e.log

	switch e.state {
	case vo.ExporterIsFinalizing:
		return fmt.Errorf("%w: generate bundle while %v", errors.ErrWrongExporterState, e.state)
	case vo.ExporterIsConfiguring:
		log.Warn("bundle generated before config resolved, nothing to upload")
		e.state = vo.ExporterIsFinalizing
		return nil
	}
	e.state = vo.ExporterIsFinalizing

	if e.outDir == "" {
		log.Warn("no output directory, nothing to upload")
		return nil
	}

	entries := []models.ManifestEntry{}
	for _, asset := range bundle.Assets() {
		tracked, ok := e.tracked[asset.FileName]
		if !ok {
			continue
		}

		p := &models.PendingUpload{
			TrackedAsset: tracked,
			LocalPath:    filepath.Join(e.outDir, filepath.FromSlash(asset.FileName)),
			Size:         types.Size(len(asset.Source)),
		}
		if !lib.IsInside(e.outDir, p.LocalPath) {
			log.Warn("asset outside output directory", slog.String("fileName", asset.FileName), slog.String("localPath", p.LocalPath))
			continue
		}
		if e.opts.ContentTypeBy != nil {
			contentType, err := e.opts.ContentTypeBy(ctx, asset.FileName)
			if err != nil {
				log.Warn("unable to resolve content type", slog.String("fileName", asset.FileName), slog.Any("err", err))
			} else {
				p.ContentType = contentType
			}
		}
		if err := lib.Validate.Struct(p); err != nil {
			log.Warn("invalid pending upload", slog.String("fileName", asset.FileName), slog.Any("err", err))
			continue
		}

		entries = append(entries, p.ManifestEntry())
		e.pending = append(e.pending, p)
		e.publish(ports.TopicAssetTracked, ports.Event{FileName: p.FileName, Key: p.Key, Size: int64(p.Size)})
	}
	log.Info("bundle generated", slog.Int("pending", len(e.pending)), slog.Int("tracked", len(e.tracked)), slog.String("size", e.pending.TotalSize().String()))

	if !e.opts.Manifest || len(entries) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(models.Manifest{Assets: entries}, "", "  ")
	if err != nil {
		return err
	}
	if err := bundle.EmitAsset(models.ManifestFileName, data); err != nil {
		log.Error("unable to emit manifest", slog.Any("err", err))
		return fmt.Errorf("emit %s: %w", models.ManifestFileName, err)
	}
	log.Info("manifest emitted", slog.String("fileName", models.ManifestFileName), slog.Int("assets", len(entries)))
	return nil
}

// CloseBundle cleans the remote prefix and uploads all pending assets.
// It returns error when at least one upload failed,
// but only after all uploads are settled.
func (e *Exporter) CloseBundle(ctx context.Context) error {
	log := e.log
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	defer e.publish(ports.TopicBuildFinished, ports.Event{})

	if len(pending) == 0 {
		log.Debug("nothing to upload")
		return nil
	}

	if e.opts.DryRun {
		for _, p := range pending {
			log.Info("dry run, would upload", slog.String("fileName", p.FileName), slog.String("key", p.Key), slog.String("url", p.URL), slog.String("size", p.Size.String()))
		}
		log.Info("dry run, nothing uploaded", slog.Int("assets", len(pending)), slog.String("size", pending.TotalSize().String()))
		return nil
	}

	e.cleanRemote(ctx)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)
	for _, p := range pending {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.settle(ctx, p); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		log.Error("upload failed", slog.Int("failed", len(errs.Errors)), slog.Int("assets", len(pending)))
		return err
	}
	log.Info("upload complete", slog.Int("assets", len(pending)), slog.String("size", pending.TotalSize().String()))
	return nil
}

// Discard drops pending uploads of the build failed before CloseBundle,
// and reports the build finished.
func (e *Exporter) Discard(err error) {
	e.mu.Lock()
	n := len(e.pending)
	e.pending = nil
	e.state = vo.ExporterIsFinalizing
	e.mu.Unlock()

	e.log.Warn("build discarded", slog.Int("pending", n), slog.Any("err", err))
	e.publish(ports.TopicBuildFinished, ports.Event{Err: err})
}

// cleanRemote runs at most once per build
func (e *Exporter) cleanRemote(ctx context.Context) {
	log := e.log
	e.mu.Lock()
	if !e.opts.Clean || e.cleaned {
		e.mu.Unlock()
		return
	}
	e.cleaned = true
	e.mu.Unlock()

	prefix := lib.TrimSlashes(e.opts.Prefix)
	if prefix == "" {
		log.Warn("refuse to clean remote without prefix")
		return
	}
	cleaner, ok := e.opts.Provider.(ports.PrefixCleaner)
	if !ok {
		log.Warn("provider unable to clean remote prefix", slog.String("prefix", prefix))
		return
	}

	log.Info("cleaning remote", slog.String("prefix", prefix))
	if err := cleaner.CleanPrefix(ctx, prefix); err != nil {
		log.Warn("unable to clean remote", slog.String("prefix", prefix), slog.Any("err", err))
	}
}

// settle uploads or skips single asset, then removes local copy if requested
func (e *Exporter) settle(ctx context.Context, p *models.PendingUpload) (vo.UploadState, error) {
	log := e.log.With(slog.String("fileName", p.FileName), slog.String("key", p.Key))
	provider := e.opts.Provider
	state := vo.UploadIsPending

	if skipper, ok := provider.(ports.UploadSkipper); ok && e.opts.SkipNotModified {
		skip, err := skipper.ShouldSkipUpload(ctx, p.LocalPath, p.Key)
		if err != nil {
			log.Debug("unable to check remote copy", slog.Any("err", err))
		}
		if skip && err == nil {
			state = vo.UploadIsSkipped
		}
	}

	if state != vo.UploadIsSkipped {
		if err := provider.Upload(ctx, p.LocalPath, p.Key, p.ContentType); err != nil {
			log.Error("upload failed", slog.Any("err", err))
			err = errors.ErrUploadFailed{FileName: p.FileName, Key: p.Key, Err: err}
			e.publish(ports.TopicAssetFailed, ports.Event{FileName: p.FileName, Key: p.Key, Size: int64(p.Size), Err: err})
			return vo.UploadIsFailed, err
		}
		state = vo.UploadIsDone
	}
	log.Debug("asset settled", slog.String("state", state.String()))

	topic := ports.TopicAssetUploaded
	if state == vo.UploadIsSkipped {
		topic = ports.TopicAssetSkipped
	}
	e.publish(topic, ports.Event{FileName: p.FileName, Key: p.Key, Size: int64(p.Size)})

	if e.opts.Delete && state.CanDeleteLocal() {
		if err := e.fs.Remove(p.LocalPath); err != nil {
			log.Warn("unable to delete local copy", slog.String("localPath", p.LocalPath), slog.Any("err", err))
		}
	}
	return state, nil
}
