// Copyright 2024-2026 Aiku AI

package handler

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/aiku/mxconsole/pkg/handler/keywords"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the client configuration.
type Config struct {
	HomeserverURL string `yaml:"homeserver_url"`
	DeviceName    string `yaml:"device_name"`
	StorePath     string `yaml:"store_path"`
	MediaCacheDir string `yaml:"media_cache_dir"`

	// KeywordList holds the notification keywords ("bing words").
	KeywordList        []string `yaml:"keywords"`
	InAppNotifications bool     `yaml:"in_app_notifications"`
	// SubtitleMaxLength limits conversation list previews, in runes.
	// 0 disables the limit.
	SubtitleMaxLength int `yaml:"subtitle_max_length"`
	// AdminAPIAddr is the listen address of the admin HTTP API serving
	// /api/reload-keywords. Empty disables it.
	AdminAPIAddr string `yaml:"admin_api_addr"`

	matcher *keywords.Matcher `yaml:"-"`
	// path is the file the config was loaded from, if any.
	path string `yaml:"-"`
}

var _ NotificationConfig = (*Config)(nil)

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess validates the configuration and compiles the keyword matcher.
func (c *Config) PostProcess() error {
	if c.HomeserverURL != "" {
		u, err := url.Parse(c.HomeserverURL)
		if err != nil {
			return fmt.Errorf("invalid homeserver_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid homeserver_url %q: scheme must be http or https", c.HomeserverURL)
		}
	}
	if c.SubtitleMaxLength < 0 {
		return errors.New("subtitle_max_length must not be negative")
	}
	c.matcher = keywords.New(c.KeywordList)
	return nil
}

// Keywords returns the normalized keyword list.
func (c *Config) Keywords() []string {
	if c.matcher == nil {
		return keywords.New(c.KeywordList).Keywords()
	}
	return c.matcher.Keywords()
}

// LoadKeywords returns the keyword list from the configuration source. A
// config read by LoadConfig re-reads its file, so edits made since startup
// are picked up; the receiver itself is left unchanged.
func (c *Config) LoadKeywords() ([]string, error) {
	if c.path == "" {
		return c.Keywords(), nil
	}
	fresh, err := LoadConfig(c.path)
	if err != nil {
		return nil, err
	}
	return fresh.Keywords(), nil
}

// Matcher returns the compiled keyword matcher. PostProcess must have been called.
func (c *Config) Matcher() *keywords.Matcher {
	if c.matcher == nil {
		return keywords.New(c.KeywordList)
	}
	return c.matcher
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "homeserver_url")
	helper.Copy(up.Str, "device_name")
	helper.Copy(up.Str, "store_path")
	helper.Copy(up.Str, "media_cache_dir")
	helper.Copy(up.List, "keywords")
	helper.Copy(up.Bool, "in_app_notifications")
	helper.Copy(up.Int, "subtitle_max_length")
	helper.Copy(up.Str, "admin_api_addr")
}

// ParseConfig merges the user configuration in data over the example config
// and decodes the result. Keys missing from data keep their example values.
func ParseConfig(data []byte) (*Config, error) {
	var baseNode, cfgNode yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &baseNode); err != nil {
		return nil, fmt.Errorf("failed to parse example config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfgNode); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfgNode.Content) > 0 {
		upgradeConfig(up.NewHelper(&baseNode, &cfgNode))
	}
	var cfg Config
	if err := baseNode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the configuration file at path. A missing file yields the
// example configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}
