package warpdrive

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"slices"
	"syscall"

	"github.com/spf13/afero"

	"github.com/cloudcopper/warpdrive/adapters"
	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/domain/models"
	"github.com/cloudcopper/warpdrive/infra"
	"github.com/cloudcopper/warpdrive/infra/config"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
)

// NewProvider creates upload provider described by config.
// It returns nil provider when config has no provider.
func NewProvider(ctx context.Context, log ports.Logger, f ports.FS, cfg *config.Config) (ports.UploadProvider, error) {
	p := cfg.Provider
	if p == nil {
		log.Warn("no provider configured")
		return nil, nil
	}

	switch p.Kind {
	case config.ProviderS3:
		opts := adapters.S3Options{
			Endpoint:        p.Endpoint,
			Bucket:          p.Bucket,
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: p.SecretAccessKey,
			Region:          p.Region,
			RequestTimeout:  p.RequestTimeout.Std(),
			MaxRequestSize:  int64(p.MaxRequestSize),
			SkipNotModified: p.SkipNotModified,
			PublicBaseURL:   p.PublicBaseURL,
		}
		client, bucket, err := adapters.NewS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return adapters.NewS3UploadProvider(log, f, &infra.Md5{}, client, bucket, opts), nil
	case config.ProviderFS:
		provider, err := adapters.NewFsUploadProvider(log, f, f, &infra.Md5{}, p.Root, p.PublicBaseURL, p.SkipNotModified)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
	return nil, errors.ErrUnknownProviderKind
}

// NewExportOptions maps config into exporter and build options
func NewExportOptions(f ports.FS, cfg *config.Config, provider ports.UploadProvider) (Options, BuildOptions, error) {
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Prefix = cfg.Prefix
	opts.Manifest = cfg.Manifest
	opts.Delete = cfg.Delete
	opts.Clean = cfg.Clean
	opts.DryRun = cfg.DryRun
	opts.SkipNotModified = cfg.SkipNotModified
	opts.ContentTypeBy = adapters.NewContentTypeResolver(f, cfg.OutDir, cfg.ContentTypes).ContentType

	include, err := compileAll(cfg.Include)
	if err != nil {
		return opts, BuildOptions{}, err
	}
	for _, re := range include {
		opts.Include = append(opts.Include, MatchRegexp(re))
	}

	exclude, err := compileAll(cfg.Exclude)
	if err != nil {
		return opts, BuildOptions{}, err
	}
	hostTypes := cfg.HostTypes
	if len(exclude) > 0 || len(hostTypes) > 0 {
		opts.IncludeBy = func(fileName string, host models.HostContext) bool {
			if matchAny(exclude, fileName) {
				return false
			}
			return len(hostTypes) == 0 || slices.Contains(hostTypes, host.HostType)
		}
	}

	rewrite, err := compileAll(cfg.Rewrite)
	if err != nil {
		return opts, BuildOptions{}, err
	}
	bo := BuildOptions{
		OutDir:  cfg.OutDir,
		Base:    cfg.Base,
		Rewrite: rewrite,
	}
	return opts, bo, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	list := []*regexp.Regexp{}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		list = append(list, re)
	}
	return list, nil
}

// prepare loads config and creates everything needed by build
func prepare(ctx context.Context, log ports.Logger, f ports.FS) (*config.Config, Options, BuildOptions, error) {
	cfg, err := config.LoadConfig(log, f)
	if err != nil {
		log.Error("unable to load config!!!", slog.Any("err", err))
		return nil, Options{}, BuildOptions{}, lib.NewErrorCode(err, errors.RetLoadConfigError)
	}

	provider, err := NewProvider(ctx, log, f, cfg)
	if err != nil {
		log.Error("unable to create provider", slog.Any("err", err))
		return nil, Options{}, BuildOptions{}, lib.NewErrorCode(err, errors.RetCreateProviderError)
	}

	opts, bo, err := NewExportOptions(f, cfg, provider)
	if err != nil {
		log.Error("invalid config patterns", slog.Any("err", err))
		return nil, Options{}, BuildOptions{}, lib.NewErrorCode(err, errors.RetLoadConfigError)
	}
	return cfg, opts, bo, nil
}

// Export runs single build over the configured output directory
func Export(ctx context.Context, log ports.Logger) error {
	var realFS ports.FS = afero.NewOsFs()

	// EventBus
	var bus ports.EventBus = infra.NewEventBus()
	defer bus.Shutdown()

	_, opts, bo, err := prepare(ctx, log, realFS)
	if err != nil {
		return err
	}

	reportService := NewReportService(log, bus)
	defer reportService.Close()

	if _, err := RunBuild(ctx, log, realFS, bus, bo, opts); err != nil {
		log.Error("build failed", slog.Any("err", err))
		return lib.NewErrorCode(err, errors.RetBuildError)
	}
	return nil
}

// Watch runs new build every time the trigger file appears
// in the output directory, until ctrl-c.
// Failed builds are logged and do not stop watching.
func Watch(ctx context.Context, log ports.Logger) error {
	var realFS ports.FS = afero.NewOsFs()

	// EventBus
	var bus ports.EventBus = infra.NewEventBus()
	defer bus.Shutdown()

	cfg, opts, bo, err := prepare(ctx, log, realFS)
	if err != nil {
		return err
	}

	reportService := NewReportService(log, bus)
	defer reportService.Close()

	chTriggerFired := bus.Sub(ports.TopicTriggerFired)
	defer bus.Unsub(chTriggerFired)

	// Create filesystem watcher for output directory
	watcher, err := infra.NewWatcherService(log, bus, cfg.OutDir, cfg.Trigger, config.WatchDebounce)
	if err != nil {
		log.Error("unable to create new watcher service", slog.Any("err", err))
		return lib.NewErrorCode(err, errors.RetCreateInputWatcherError)
	}
	defer watcher.Close()

	// Add ctrl-c shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("press ctrl-c to exit")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-chTriggerFired:
			if !ok {
				return nil
			}
			if _, err := RunBuild(ctx, log, realFS, bus, bo, opts); err != nil {
				log.Error("build failed", slog.Any("err", err))
			}
			if err := realFS.Remove(event.FileName); err != nil {
				log.Warn("unable to remove trigger", slog.String("fileName", event.FileName), slog.Any("err", err))
			}
		}
	}
}
