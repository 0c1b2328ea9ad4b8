package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the CLI configuration. It is read from an optional TOML file and
// then overridden by any flag set on the command line.
type Config struct {
	Form      string `toml:"form"`
	OpenAPI   string `toml:"openapi"`
	Component string `toml:"component"`
	Slug      string `toml:"slug"`
	Secret    string `toml:"secret"`
	LogLevel  string `toml:"log_level"`

	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

type StoreConfig struct {
	Driver    string `toml:"driver"`
	Path      string `toml:"path"`
	Table     string `toml:"table"`
	EnvPrefix string `toml:"env_prefix"`
}

type ServerConfig struct {
	Addr         string `toml:"addr"`
	Mount        string `toml:"mount"`
	InlineAssets bool   `toml:"inline_assets"`
	Watch        bool   `toml:"watch"`
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		Store:    StoreConfig{Driver: "file", Path: "options.yaml"},
		Server:   ServerConfig{Addr: ":8080", Mount: "/"},
	}
}

// loadConfig decodes path over the defaults. A missing file is an error only
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return cfg, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// flags binds the shared flags. Values are only applied when set.
type flags struct {
	config    string
	form      string
	openapi   string
	component string
	slug      string
	secret    string
	logLevel  string
	driver    string
	path      string
	table     string
	envPrefix string
}

func (f *flags) register(set *flag.FlagSet) {
	set.StringVar(&f.config, "config", "optionform.toml", "TOML config file")
	set.StringVar(&f.form, "form", "", "form document (YAML or JSON)")
	set.StringVar(&f.openapi, "openapi", "", "OpenAPI document path or URL to build the form from")
	set.StringVar(&f.component, "component", "", "OpenAPI component schema name")
	set.StringVar(&f.slug, "slug", "", "override the form slug")
	set.StringVar(&f.secret, "secret", "", "nonce signing secret")
	set.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	set.StringVar(&f.driver, "store", "", "store driver: memory, file or sqlite")
	set.StringVar(&f.path, "store-path", "", "file path or sqlite DSN")
	set.StringVar(&f.table, "store-table", "", "sqlite table name")
	set.StringVar(&f.envPrefix, "env-prefix", "", "environment prefix for constant overrides")
}

// resolve loads the config file and applies the flags that were set.
func (f *flags) resolve(set *flag.FlagSet) (Config, error) {
	given := make(map[string]bool)
	set.Visit(func(fl *flag.Flag) { given[fl.Name] = true })

	cfg, err := loadConfig(f.config, given["config"])
	if err != nil {
		return cfg, err
	}
	apply := func(name string, dst *string, value string) {
		if given[name] {
			*dst = value
		}
	}
	apply("form", &cfg.Form, f.form)
	apply("openapi", &cfg.OpenAPI, f.openapi)
	apply("component", &cfg.Component, f.component)
	apply("slug", &cfg.Slug, f.slug)
	apply("secret", &cfg.Secret, f.secret)
	apply("log-level", &cfg.LogLevel, f.logLevel)
	apply("store", &cfg.Store.Driver, f.driver)
	apply("store-path", &cfg.Store.Path, f.path)
	apply("store-table", &cfg.Store.Table, f.table)
	apply("env-prefix", &cfg.Store.EnvPrefix, f.envPrefix)

	if cfg.Form == "" && cfg.OpenAPI == "" {
		return cfg, errors.New("config: a form document or an OpenAPI source is required")
	}
	if cfg.OpenAPI != "" && cfg.Component == "" {
		return cfg, errors.New("config: -component is required with -openapi")
	}
	return cfg, nil
}
