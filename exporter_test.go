package warpdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/domain/models"
	"github.com/cloudcopper/warpdrive/domain/vo"
	"github.com/cloudcopper/warpdrive/infra"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/lib/random"
	"github.com/cloudcopper/warpdrive/ports"
)

func matchExt(ext string) Matcher {
	return MatchRegexp(regexp.MustCompile(regexp.QuoteMeta("."+ext) + "$"))
}

// testBuild runs exporter over the files
// and references every file from index.html
func testBuild(t *testing.T, fs afero.Fs, opts Options, files map[string]string) (*Exporter, *testBundle, error) {
	assert := require.New(t)
	e := NewExporter(slog.Default(), fs, nil, opts)
	assert.NoError(e.ConfigResolved("/dist"))

	bundle := newTestBundle(fs, "/dist", files)
	for _, asset := range bundle.Assets() {
		e.RenderURL(asset.FileName, models.HostContext{HostID: "index.html", HostType: "html"})
	}
	assert.NoError(e.GenerateBundle(context.Background(), bundle))
	err := e.CloseBundle(context.Background())
	return e, bundle, err
}

func TestExporterRenderURL(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Prefix = "cdn"
	opts.Include = []Matcher{matchExt("wasm")}

	e := NewExporter(slog.Default(), fs, nil, opts)
	assert.NoError(e.ConfigResolved("/dist"))

	url, ok := e.RenderURL("app.wasm", models.HostContext{HostID: "main.js", HostType: "js"})
	assert.True(ok)
	assert.Equal("https://cdn.example.com/cdn/app.wasm", url)

	url, ok = e.RenderURL("app.js", models.HostContext{})
	assert.False(ok)
	assert.Equal("", url)

	tracked := e.Tracked()
	assert.Len(tracked, 1)
	assert.Equal("cdn/app.wasm", tracked["app.wasm"].Key)
	assert.Equal("https://cdn.example.com/cdn/app.wasm", tracked["app.wasm"].URL)
	assert.Equal("main.js", tracked["app.wasm"].Host.HostID)

	// last write wins
	_, ok = e.RenderURL("app.wasm", models.HostContext{HostID: "index.html", HostType: "html"})
	assert.True(ok)
	assert.Equal("index.html", e.Tracked()["app.wasm"].Host.HostID)
}

func TestExporterRenderURLEqualsProviderURL(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://"+random.Word()+".example.com/")

	for _, prefix := range []string{"", "remote-assets", "a/b"} {
		opts := DefaultOptions()
		opts.Provider = provider
		opts.Prefix = prefix
		opts.Include = []Matcher{MatchFunc(func(string) bool { return true })}
		e := NewExporter(slog.Default(), fs, nil, opts)

		for i := 0; i < 20; i++ {
			fileName := random.AssetName("")
			url, ok := e.RenderURL(fileName, models.HostContext{})
			assert.True(ok)
			if prefix == "" {
				assert.Equal(provider.PublicURL(fileName), url)
			} else {
				assert.Equal(provider.PublicURL(prefix+"/"+fileName), url)
			}
		}
	}
}

func TestExporterNoProvider(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	opts := DefaultOptions()
	opts.Include = []Matcher{matchExt("png")}
	opts.Manifest = true

	e, bundle, err := testBuild(t, fs, opts, map[string]string{"a.png": "a"})
	assert.NoError(err)
	assert.Empty(e.Tracked())
	assert.Empty(bundle.emitted)
	exists, _ := afero.Exists(fs, "/dist/a.png")
	assert.True(exists)
}

func TestExporterUploadAndDelete(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png"), matchExt("wasm")}
	opts.ContentTypeBy = func(_ context.Context, fileName string) (string, error) {
		if fileName == "app.wasm" {
			return "application/wasm", nil
		}
		return "", fmt.Errorf("unknown type of %v", fileName)
	}

	e, _, err := testBuild(t, fs, opts, map[string]string{
		"a.png":    "aaa",
		"app.wasm": "wasm",
		"main.js":  "js",
	})
	assert.NoError(err)
	assert.Equal(vo.ExporterIsFinalizing, e.State())
	assert.Equal([]string{"remote-assets/a.png", "remote-assets/app.wasm"}, provider.Uploads())
	assert.Equal("application/wasm", provider.contentType["remote-assets/app.wasm"])
	assert.Equal("", provider.contentType["remote-assets/a.png"])
	assert.True(provider.existsAtUpload["remote-assets/a.png"])

	for _, name := range []string{"/dist/a.png", "/dist/app.wasm"} {
		exists, _ := afero.Exists(fs, name)
		assert.False(exists, name)
	}
	exists, _ := afero.Exists(fs, "/dist/main.js")
	assert.True(exists)
}

func TestExporterKeepLocal(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.Delete = false

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "aaa"})
	assert.NoError(err)
	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
	exists, _ := afero.Exists(fs, "/dist/a.png")
	assert.True(exists)
}

func TestExporterSkipNotModified(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	provider.sameRemote["remote-assets/a.png"] = true
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "same", "b.png": "changed"})
	assert.NoError(err)
	assert.Equal([]string{"remote-assets/b.png"}, provider.Uploads())
	assert.ElementsMatch([]string{"remote-assets/a.png", "remote-assets/b.png"}, provider.checks)
	for _, name := range []string{"/dist/a.png", "/dist/b.png"} {
		exists, _ := afero.Exists(fs, name)
		assert.False(exists, name)
	}
}

func TestExporterSkipCheckFailureUploads(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	provider.sameRemote["remote-assets/a.png"] = true
	provider.skipErr = fmt.Errorf("head object timeout")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "same"})
	assert.NoError(err)
	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
}

func TestExporterSkipDisabled(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	provider.sameRemote["remote-assets/a.png"] = true
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.SkipNotModified = false

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "same"})
	assert.NoError(err)
	assert.Empty(provider.checks)
	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
}

func TestExporterUploadFailure(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	provider.failUpload["remote-assets/b.png"] = true
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	files := map[string]string{}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("%c.png", 'a'+i)] = random.Sentences([]int{1, 2})
	}
	_, _, err := testBuild(t, fs, opts, files)
	assert.Error(err)

	var failed errors.ErrUploadFailed
	assert.True(errors.As(err, &failed))
	assert.Equal("b.png", failed.FileName)
	assert.Equal("remote-assets/b.png", failed.Key)

	// every other asset settled before the error returned
	assert.Len(provider.Uploads(), 10)
	exists, _ := afero.Exists(fs, "/dist/b.png")
	assert.True(exists)
	for name := range files {
		if name == "b.png" {
			continue
		}
		exists, _ := afero.Exists(fs, "/dist/"+name)
		assert.False(exists, name)
	}
}

func TestExporterDryRun(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.DryRun = true
	opts.Manifest = true

	e, bundle, err := testBuild(t, fs, opts, map[string]string{"a.png": "a", "b.png": "b"})
	assert.NoError(err)
	assert.Len(e.Tracked(), 2)
	assert.Contains(bundle.emitted, models.ManifestFileName)
	assert.Empty(provider.Uploads())
	assert.Empty(provider.cleans)
	for _, name := range []string{"/dist/a.png", "/dist/b.png"} {
		exists, _ := afero.Exists(fs, name)
		assert.True(exists, name)
	}
}

func TestExporterClean(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.Prefix = "/cdn/"

	e, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "a"})
	assert.NoError(err)
	assert.Equal([]string{"cdn"}, provider.cleans)

	// invoked again within the same build
	e.cleanRemote(context.Background())
	assert.Equal([]string{"cdn"}, provider.cleans)
}

func TestExporterCleanEmptyPrefix(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.Prefix = ""

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "a"})
	assert.NoError(err)
	assert.Empty(provider.cleans)
	assert.Equal([]string{"a.png"}, provider.Uploads())
}

func TestExporterCleanDisabledOrUnsupported(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	opts.Clean = false

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "a"})
	assert.NoError(err)
	assert.Empty(provider.cleans)

	// plain provider has no clean capability
	plain := newTestProvider(fs, "https://cdn.example.com")
	opts = DefaultOptions()
	opts.Provider = plain
	opts.Include = []Matcher{matchExt("png")}
	_, _, err = testBuild(t, fs, opts, map[string]string{"a.png": "a"})
	assert.NoError(err)
	assert.Equal([]string{"remote-assets/a.png"}, plain.Uploads())
}

func TestExporterCleanBeforeUpload(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	provider.cleanDelay = 50 * time.Millisecond
	provider.uploadDelay["remote-assets/c.png"] = 100 * time.Millisecond
	provider.failUpload["remote-assets/b.png"] = true
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	_, _, err := testBuild(t, fs, opts, map[string]string{"a.png": "a", "b.png": "b", "c.png": "c"})
	assert.Error(err)

	calls := provider.Calls()
	assert.Len(calls, 4)
	assert.Equal("clean remote-assets", calls[0])
	assert.ElementsMatch([]string{
		"upload remote-assets/a.png",
		"upload remote-assets/b.png",
		"upload remote-assets/c.png",
	}, calls[1:])
	exists, _ := afero.Exists(fs, "/dist/c.png")
	assert.False(exists)
}

func TestExporterOutsideOutDir(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := testCleaningProvider{newTestProvider(fs, "https://cdn.example.com")}
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	e := NewExporter(slog.Default(), fs, nil, opts)
	assert.NoError(e.ConfigResolved("/dist/"))
	host := models.HostContext{HostID: "index.html", HostType: "html"}

	bundle := newTestBundle(fs, "/dist", map[string]string{"a.png": "a"})
	assert.NoError(lib.WriteFile(fs, "/secret.png", []byte("secret")))
	bundle.assets = append(bundle.assets, ports.BundleAsset{FileName: "../secret.png", Source: []byte("secret")})

	_, ok := e.RenderURL("a.png", host)
	assert.True(ok)
	for _, name := range []string{"../secret.png", "img/../../secret.png", "./a.png"} {
		url, ok := e.RenderURL(name, host)
		assert.False(ok, name)
		assert.Empty(url)
	}
	assert.Len(e.Tracked(), 1)

	// tracked by other means, still kept inside
	e.tracked["../secret.png"] = models.TrackedAsset{
		FileName: "../secret.png",
		Key:      "remote-assets/../secret.png",
		URL:      "https://cdn.example.com/secret.png",
		Host:     host,
	}
	assert.NoError(e.GenerateBundle(context.Background(), bundle))
	assert.NoError(e.CloseBundle(context.Background()))

	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
	exists, _ := afero.Exists(fs, "/secret.png")
	assert.True(exists)
}

func TestExporterManifest(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("wasm")}
	opts.Manifest = true

	_, bundle, err := testBuild(t, fs, opts, map[string]string{"app.wasm": "0123456789", "main.js": "js"})
	assert.NoError(err)

	data, ok := bundle.emitted[models.ManifestFileName]
	assert.True(ok)
	manifest := models.Manifest{}
	assert.NoError(json.Unmarshal(data, &manifest))
	assert.Equal([]models.ManifestEntry{{
		FileName: "app.wasm",
		URL:      "https://cdn.example.com/remote-assets/app.wasm",
		Key:      "remote-assets/app.wasm",
		HostID:   "index.html",
		HostType: "html",
		Size:     10,
	}}, manifest.Assets)

	// no entry no manifest
	opts.Include = []Matcher{matchExt("glb")}
	_, bundle, err = testBuild(t, fs, opts, map[string]string{"app.wasm": "0123456789"})
	assert.NoError(err)
	assert.Empty(bundle.emitted)
}

func TestExporterStates(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	provider := newTestProvider(fs, "https://cdn.example.com")
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}
	ctx := context.Background()
	bundle := newTestBundle(fs, "/dist", map[string]string{"a.png": "a"})

	// no resolved build context
	e := NewExporter(slog.Default(), fs, nil, opts)
	assert.Equal(vo.ExporterIsConfiguring, e.State())
	_, ok := e.RenderURL("a.png", models.HostContext{})
	assert.True(ok)
	assert.NoError(e.GenerateBundle(ctx, bundle))
	assert.NoError(e.CloseBundle(ctx))
	assert.Empty(provider.Uploads())

	e = NewExporter(slog.Default(), fs, nil, opts)
	assert.NoError(e.ConfigResolved("/dist"))
	assert.ErrorIs(e.ConfigResolved("/dist"), errors.ErrWrongExporterState)
	assert.Equal(vo.ExporterIsCollecting, e.State())
	_, ok = e.RenderURL("a.png", models.HostContext{})
	assert.True(ok)
	assert.NoError(e.GenerateBundle(ctx, bundle))
	assert.ErrorIs(e.GenerateBundle(ctx, bundle), errors.ErrWrongExporterState)
	_, ok = e.RenderURL("b.png", models.HostContext{})
	assert.False(ok)

	assert.NoError(e.CloseBundle(ctx))
	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
	// pending uploads are consumed
	assert.NoError(e.CloseBundle(ctx))
	assert.Equal([]string{"remote-assets/a.png"}, provider.Uploads())
}

func TestExporterEvents(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	bus := infra.NewEventBus()
	defer bus.Shutdown()
	chTracked := bus.Sub(ports.TopicAssetTracked)
	chUploaded := bus.Sub(ports.TopicAssetUploaded)
	chFailed := bus.Sub(ports.TopicAssetFailed)
	chFinished := bus.Sub(ports.TopicBuildFinished)

	provider := newTestProvider(fs, "https://cdn.example.com")
	provider.failUpload["remote-assets/b.png"] = true
	opts := DefaultOptions()
	opts.Provider = provider
	opts.Include = []Matcher{matchExt("png")}

	e := NewExporter(slog.Default(), fs, bus, opts)
	assert.NoError(e.ConfigResolved("/dist"))
	bundle := newTestBundle(fs, "/dist", map[string]string{"a.png": "aa", "b.png": "bbb"})
	e.RenderURL("a.png", models.HostContext{})
	e.RenderURL("b.png", models.HostContext{})
	assert.NoError(e.GenerateBundle(context.Background(), bundle))
	assert.Error(e.CloseBundle(context.Background()))

	tracked := []string{(<-chTracked).FileName, (<-chTracked).FileName}
	assert.ElementsMatch([]string{"a.png", "b.png"}, tracked)
	uploaded := <-chUploaded
	assert.Equal("a.png", uploaded.FileName)
	assert.EqualValues(2, uploaded.Size)
	assert.Equal(e.BuildID(), uploaded.BuildID)
	failed := <-chFailed
	assert.Equal("b.png", failed.FileName)
	assert.Error(failed.Err)
	finished := <-chFinished
	assert.Equal(e.BuildID(), finished.BuildID)
}
