package warpdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
)

// testProvider records every call.
// Keys listed in failUpload are refused, keys listed in sameRemote are skipped.
// Calls are also appended to calls in completion order.
type testProvider struct {
	mu          sync.Mutex
	fs          ports.FS
	baseURL     string
	failUpload  map[string]bool
	sameRemote  map[string]bool
	skipErr     error
	uploads     []string
	contentType map[string]string
	cleans      []string
	checks      []string
	calls       []string
	// uploadDelay and cleanDelay hold call duration
	uploadDelay map[string]time.Duration
	cleanDelay  time.Duration
	// existsAtUpload holds local file existence at the moment of upload
	existsAtUpload map[string]bool
}

func newTestProvider(fs ports.FS, baseURL string) *testProvider {
	return &testProvider{
		fs:             fs,
		baseURL:        baseURL,
		failUpload:     map[string]bool{},
		sameRemote:     map[string]bool{},
		contentType:    map[string]string{},
		uploadDelay:    map[string]time.Duration{},
		existsAtUpload: map[string]bool{},
	}
}

func (p *testProvider) Upload(_ context.Context, localPath, key, contentType string) error {
	exists, _ := afero.Exists(p.fs, localPath)
	p.mu.Lock()
	delay := p.uploadDelay[key]
	p.mu.Unlock()
	time.Sleep(delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, key)
	p.calls = append(p.calls, "upload "+key)
	p.contentType[key] = contentType
	p.existsAtUpload[key] = exists
	if p.failUpload[key] {
		return fmt.Errorf("remote refused %v", key)
	}
	return nil
}

func (p *testProvider) PublicURL(key string) string {
	return lib.JoinURL(p.baseURL, key)
}

func (p *testProvider) Uploads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := append([]string{}, p.uploads...)
	sort.Strings(list)
	return list
}

// Calls returns provider calls in completion order
func (p *testProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.calls...)
}

// testCleaningProvider adds prefix cleaning and upload skip
type testCleaningProvider struct {
	*testProvider
}

func (p testCleaningProvider) CleanPrefix(_ context.Context, prefix string) error {
	p.mu.Lock()
	delay := p.cleanDelay
	p.mu.Unlock()
	time.Sleep(delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	if lib.TrimSlashes(prefix) == "" {
		return errors.ErrUnscopedPrefix
	}
	p.cleans = append(p.cleans, prefix)
	p.calls = append(p.calls, "clean "+prefix)
	return nil
}

func (p testCleaningProvider) ShouldSkipUpload(_ context.Context, _, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, key)
	if p.skipErr != nil {
		return true, p.skipErr
	}
	return p.sameRemote[key], nil
}

// testBundle is in memory bundle, which writes assets to fs
type testBundle struct {
	fs      ports.FS
	outDir  string
	assets  []ports.BundleAsset
	emitted map[string][]byte
}

func newTestBundle(fs ports.FS, outDir string, files map[string]string) *testBundle {
	b := &testBundle{
		fs:      fs,
		outDir:  outDir,
		emitted: map[string][]byte{},
	}
	names := []string{}
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data := []byte(files[name])
		lib.Assert(lib.WriteFile(fs, outDir+"/"+name, data))
		b.assets = append(b.assets, ports.BundleAsset{FileName: name, Source: data})
	}
	return b
}

func (b *testBundle) Assets() []ports.BundleAsset {
	return b.assets
}

func (b *testBundle) EmitAsset(fileName string, source []byte) error {
	b.emitted[fileName] = source
	return nil
}

// readOnlyFileFs refuses to write files with given base name
type readOnlyFileFs struct {
	afero.Fs
	name string
}

func (f readOnlyFileFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == f.name && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f readOnlyFileFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}
