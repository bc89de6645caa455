package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cloudcopper/warpdrive/lib/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, ConfigFileName, []byte("outDir: /dist\n"), 0o644))

	cfg, err := LoadConfig(slog.Default(), fs)
	assert.NoError(err)
	assert.Equal("/dist", cfg.OutDir)
	assert.Equal("/", cfg.Base)
	assert.Equal("remote-assets", cfg.Prefix)
	assert.Empty(cfg.Include)
	assert.Equal(DefaultRewrite, cfg.Rewrite)
	assert.False(cfg.Manifest)
	assert.True(cfg.Delete)
	assert.True(cfg.Clean)
	assert.False(cfg.DryRun)
	assert.True(cfg.SkipNotModified)
	assert.Nil(cfg.Provider)
}

func TestLoadConfigS3(t *testing.T) {
	assert := require.New(t)
	fs := afero.NewMemMapFs()
	yml := `
outDir: /dist
prefix: ""
include:
  - '\.wasm$'
manifest: true
delete: false
contentTypes:
  .wasm: application/wasm
provider:
  kind: s3
  endpoint: https://account.r2.cloudflarestorage.com/bucket
  accessKeyId: id
  secretAccessKey: secret
  requestTimeout: 10s
`
	assert.NoError(afero.WriteFile(fs, ConfigFileName, []byte(yml), 0o644))

	cfg, err := LoadConfig(slog.Default(), fs)
	assert.NoError(err)
	assert.Equal("", cfg.Prefix)
	assert.Equal([]string{`\.wasm$`}, cfg.Include)
	assert.True(cfg.Manifest)
	assert.False(cfg.Delete)
	assert.Equal("application/wasm", cfg.ContentTypes[".wasm"])

	p := cfg.Provider
	assert.NotNil(p)
	assert.Equal(ProviderS3, p.Kind)
	assert.Equal("auto", p.Region)
	assert.Equal(DefaultMaxRequestSize, p.MaxRequestSize)
	assert.Equal(types.Duration(10*time.Second), p.RequestTimeout)
	assert.True(p.SkipNotModified)

	// secrets never dumped
	assert.NotContains(cfg.String(), "secret\n")
}

func TestLoadConfigInvalid(t *testing.T) {
	testCases := []struct {
		desc string
		yml  string
	}{
		{"no out dir", "prefix: cdn\n"},
		{"bad include", "outDir: /dist\ninclude: ['(']\n"},
		{"unknown provider", "outDir: /dist\nprovider:\n  kind: ftp\n"},
		{"s3 without endpoint", "outDir: /dist\nprovider:\n  kind: s3\n  accessKeyId: a\n  secretAccessKey: b\n"},
		{"fs without root", "outDir: /dist\nprovider:\n  kind: fs\n  publicBaseUrl: /static\n"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert := require.New(t)
			fs := afero.NewMemMapFs()
			assert.NoError(afero.WriteFile(fs, ConfigFileName, []byte(tC.yml), 0o644))
			_, err := LoadConfig(slog.Default(), fs)
			assert.Error(err)
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	assert := require.New(t)
	_, err := LoadConfig(slog.Default(), afero.NewMemMapFs())
	assert.Error(err)
}
