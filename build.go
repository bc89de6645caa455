package warpdrive

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/cloudcopper/warpdrive/domain/models"
	"github.com/cloudcopper/warpdrive/infra/disk"
	"github.com/cloudcopper/warpdrive/ports"
)

// BuildOptions tells how host files reference assets
type BuildOptions struct {
	// OutDir is absolute build output directory
	OutDir string
	// Base is the public base path assets are referenced by, e.g. "/"
	Base string
	// Rewrite selects host files to rewrite references in
	Rewrite []*regexp.Regexp
}

// Delimiters around reference in html, css and js
const refStart = `(^|["'(=\s,])`
const refEnd = `(["')\s,?#]|$)`

// RunBuild drives one exporter over already written output directory.
// Every asset referenced as base+fileName from host file is offered
// to the exporter, and the reference is replaced by the public url.
func RunBuild(ctx context.Context, log ports.Logger, f ports.FS, bus ports.EventBus, bo BuildOptions, opts Options) (string, error) {
	e := NewExporter(log, f, bus, opts)
	log = log.With(slog.String("entity", "Build"), slog.String("buildID", e.BuildID()))
	log.Info("build started", slog.String("outDir", bo.OutDir))

	if err := e.ConfigResolved(bo.OutDir); err != nil {
		return e.BuildID(), err
	}
	bundle, err := disk.NewDirBundle(log, f, bo.OutDir)
	if err != nil {
		log.Error("unable to read output directory", slog.Any("err", err))
		return e.BuildID(), err
	}

	rewritten := 0
	names := bundle.FileNames()
	for _, hostFile := range names {
		if !matchAny(bo.Rewrite, hostFile) {
			continue
		}
		data, err := bundle.ReadFile(hostFile)
		if err != nil {
			log.Warn("unable to read host file", slog.String("hostFile", hostFile), slog.Any("err", err))
			continue
		}

		host := models.HostContext{
			HostID:   hostFile,
			HostType: strings.TrimPrefix(path.Ext(hostFile), "."),
		}
		text, changed := rewriteRefs(e, string(data), bo.Base, names, host)
		if !changed {
			continue
		}
		if err := bundle.WriteFile(hostFile, []byte(text)); err != nil {
			err = fmt.Errorf("write %s: %w", hostFile, err)
			e.Discard(err)
			return e.BuildID(), err
		}
		rewritten++
		log.Debug("host file rewritten", slog.String("hostFile", hostFile))
	}
	log.Info("references rewritten", slog.Int("hostFiles", rewritten), slog.Int("tracked", len(e.Tracked())))

	if err := e.GenerateBundle(ctx, bundle); err != nil {
		e.Discard(err)
		return e.BuildID(), err
	}
	return e.BuildID(), e.CloseBundle(ctx)
}

func rewriteRefs(e *Exporter, text, base string, names []string, host models.HostContext) (string, bool) {
	changed := false
	for _, name := range names {
		if name == host.HostID {
			continue
		}
		ref := base + name
		if !strings.Contains(text, ref) {
			continue
		}
		re := regexp.MustCompile(refStart + regexp.QuoteMeta(ref) + refEnd)
		if !re.MatchString(text) {
			continue
		}
		url, ok := e.RenderURL(name, host)
		if !ok {
			continue
		}
		repl := "${1}" + strings.ReplaceAll(url, "$", "$$") + "${2}"
		// adjacent references share delimiter, so second pass
		for i := 0; i < 2 && re.MatchString(text); i++ {
			text = re.ReplaceAllString(text, repl)
		}
		changed = true
	}
	return text, changed
}

func matchAny(list []*regexp.Regexp, s string) bool {
	for _, re := range list {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
