package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tpl "github.com/cloudcopper/misc/env/template"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/lib/types"
	"github.com/cloudcopper/warpdrive/ports"
	"github.com/spf13/afero"

	"gopkg.in/yaml.v3"
)

const (
	ProviderS3 = "s3"
	ProviderFS = "fs"
)

var (
	ConfigFileName         = "warpdrive.yml"
	DefaultPrefix          = "remote-assets"
	DefaultBase            = "/"
	DefaultTrigger         = ".warpdrive-ready"
	DefaultRegion          = "auto"
	DefaultMaxRequestSize  = types.Size(100 * 1024 * 1024)
	DefaultRequestTimeout  = types.Duration(30 * time.Second)
	DefaultRewrite         = []string{`\.(html|js|mjs|css)$`}
	WatchDebounce          = 500 * time.Millisecond
	OverrideOutDir         = ""
	OverrideDryRun         = false
	OverrideDryRunExplicit = false
)

type Config struct {
	OutDir          string            `yaml:"outDir" validate:"required,abspath"`
	Base            string            `yaml:"base"`
	Prefix          string            `yaml:"prefix"`
	Include         []string          `yaml:"include" validate:"dive,pattern"`
	Exclude         []string          `yaml:"exclude" validate:"dive,pattern"`
	HostTypes       []string          `yaml:"hostTypes"`
	Rewrite         []string          `yaml:"rewrite" validate:"dive,pattern"`
	ContentTypes    map[string]string `yaml:"contentTypes"`
	Manifest        bool              `yaml:"manifest"`
	Delete          bool              `yaml:"delete"`
	Clean           bool              `yaml:"clean"`
	DryRun          bool              `yaml:"dryRun"`
	SkipNotModified bool              `yaml:"skipNotModified"`
	Trigger         string            `yaml:"trigger" validate:"required"`
	Provider        *ProviderConfig   `yaml:"provider" validate:"omitempty"`
}

type ProviderConfig struct {
	Kind            string         `yaml:"kind" validate:"required,oneof=s3 fs"`
	Endpoint        string         `yaml:"endpoint" validate:"required_if=Kind s3,omitempty,url"`
	Bucket          string         `yaml:"bucket"`
	AccessKeyID     string         `yaml:"accessKeyId" validate:"required_if=Kind s3"`
	SecretAccessKey string         `yaml:"secretAccessKey" validate:"required_if=Kind s3"`
	Region          string         `yaml:"region" validate:"required"`
	MaxRequestSize  types.Size     `yaml:"maxRequestSize" validate:"gt=0"`
	RequestTimeout  types.Duration `yaml:"requestTimeout" validate:"min=0"`
	SkipNotModified bool           `yaml:"skipNotModified"`
	PublicBaseURL   string         `yaml:"publicBaseUrl" validate:"required_if=Kind fs"`
	Root            string         `yaml:"root" validate:"required_if=Kind fs"`
}

// Default returns config with all defaults applied
func Default() *Config {
	return &Config{
		Base:            DefaultBase,
		Prefix:          DefaultPrefix,
		Rewrite:         append([]string{}, DefaultRewrite...),
		Delete:          true,
		Clean:           true,
		SkipNotModified: true,
		Trigger:         DefaultTrigger,
	}
}

func DefaultProvider() ProviderConfig {
	return ProviderConfig{
		Region:          DefaultRegion,
		MaxRequestSize:  DefaultMaxRequestSize,
		RequestTimeout:  DefaultRequestTimeout,
		SkipNotModified: true,
	}
}

// UnmarshalYAML keeps defaults for keys absent in yaml
func (p *ProviderConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ProviderConfig
	v := plain(DefaultProvider())
	if err := value.Decode(&v); err != nil {
		return err
	}
	*p = ProviderConfig(v)
	return nil
}

func (c *Config) String() string {
	s := ""
	s += fmt.Sprintf("outDir: %v\n", c.OutDir)
	s += fmt.Sprintf("base: %v\n", c.Base)
	s += fmt.Sprintf("prefix: %q\n", c.Prefix)
	s += fmt.Sprintf("include: %v\n", c.Include)
	s += fmt.Sprintf("exclude: %v\n", c.Exclude)
	s += fmt.Sprintf("hostTypes: %v\n", c.HostTypes)
	s += fmt.Sprintf("rewrite: %v\n", c.Rewrite)
	exts := []string{}
	for k := range c.ContentTypes {
		exts = append(exts, k)
	}
	sort.Strings(exts)
	for _, k := range exts {
		s += fmt.Sprintf("contentTypes.%v: %v\n", k, c.ContentTypes[k])
	}
	s += fmt.Sprintf("manifest: %v\n", c.Manifest)
	s += fmt.Sprintf("delete: %v\n", c.Delete)
	s += fmt.Sprintf("clean: %v\n", c.Clean)
	s += fmt.Sprintf("dryRun: %v\n", c.DryRun)
	s += fmt.Sprintf("skipNotModified: %v\n", c.SkipNotModified)
	s += fmt.Sprintf("trigger: %v\n", c.Trigger)
	if p := c.Provider; p != nil {
		s += "provider:\n"
		s += fmt.Sprintf("    kind: %v\n", p.Kind)
		s += fmt.Sprintf("    endpoint: %v\n", p.Endpoint)
		s += fmt.Sprintf("    bucket: %v\n", p.Bucket)
		s += fmt.Sprintf("    accessKeyId: %v\n", lib.Mask("accessKeyId", p.AccessKeyID))
		s += fmt.Sprintf("    secretAccessKey: %v\n", lib.Mask("secretAccessKey", p.SecretAccessKey))
		s += fmt.Sprintf("    region: %v\n", p.Region)
		s += fmt.Sprintf("    maxRequestSize: %v\n", p.MaxRequestSize)
		s += fmt.Sprintf("    requestTimeout: %v\n", p.RequestTimeout)
		s += fmt.Sprintf("    skipNotModified: %v\n", p.SkipNotModified)
		s += fmt.Sprintf("    publicBaseUrl: %v\n", p.PublicBaseURL)
		s += fmt.Sprintf("    root: %v\n", p.Root)
	}
	return strings.TrimSuffix(s, "\n")
}

func LoadConfig(log ports.Logger, f afero.Fs) (*Config, error) {
	cfg, err := loadConfig(log, f, ConfigFileName)
	if err != nil {
		return nil, err
	}
	if err := processConfig(cfg); err != nil {
		return nil, err
	}
	if err := lib.Validate.Struct(cfg); err != nil {
		return nil, err
	}

	// dump effective config
	dump := strings.Split(cfg.String(), "\n")
	for _, s := range dump {
		log.Debug(s)
	}
	return cfg, nil
}

// The loadConfig reads named config file from given fs,
// execute file as env template,
// and unmarshal result over the default config
func loadConfig(log ports.Logger, f afero.Fs, fileName string) (*Config, error) {
	log.Info("loading config", slog.String("fileName", fileName))
	blob, err := afero.ReadFile(f, fileName)
	if err != nil {
		return nil, err
	}

	// parse config as template
	t, err := tpl.Parse(string(blob))
	if err != nil {
		return nil, err
	}
	// execute template
	s, err := t.Execute()
	if err != nil {
		return nil, err
	}

	// unmrashal config
	cfg := Default()
	err = yaml.Unmarshal([]byte(s), cfg)
	return cfg, err
}

// The processConfig applies command line overrides
// and makes paths absolute
func processConfig(cfg *Config) error {
	if OverrideOutDir != "" {
		cfg.OutDir = OverrideOutDir
	}
	if OverrideDryRunExplicit {
		cfg.DryRun = OverrideDryRun
	}
	if cfg.OutDir != "" {
		abs, err := filepath.Abs(cfg.OutDir)
		if err != nil {
			return err
		}
		cfg.OutDir = abs
	}
	if cfg.Base == "" {
		cfg.Base = DefaultBase
	}
	if p := cfg.Provider; p != nil && p.Kind == ProviderFS && p.Root != "" {
		abs, err := filepath.Abs(p.Root)
		if err != nil {
			return err
		}
		p.Root = abs
	}
	return nil
}
