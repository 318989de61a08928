package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "SESSIONSYNC"

// Sentinel errors returned (wrapped) by Load.
var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigValidation   = errors.New("config: validation failed")
)

// loadOptions collects the LoadOption settings.
type loadOptions struct {
	configPath  string
	searchPaths []string
	envFiles    []string
	overrides   map[string]interface{}
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithConfigPath reads exactly the given YAML file.  A missing file is an
// error (ErrConfigFileNotFound).
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.configPath = path }
}

// WithSearchPaths looks for "config.yaml" in each directory in order.  When
// no file is found the configuration comes from env vars and defaults only.
func WithSearchPaths(dirs ...string) LoadOption {
	return func(o *loadOptions) { o.searchPaths = append(o.searchPaths, dirs...) }
}

// WithEnvFile preloads dotenv files before env binding.  Variables already
// present in the process environment are not overwritten, and missing files
// are skipped.
func WithEnvFile(paths ...string) LoadOption {
	return func(o *loadOptions) { o.envFiles = append(o.envFiles, paths...) }
}

// WithOverrides sets explicit values (dotted keys) that take precedence over
// both file and environment.
func WithOverrides(values map[string]interface{}) LoadOption {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]interface{}, len(values))
		}
		for k, val := range values {
			o.overrides[k] = val
		}
	}
}

// newViper builds a pre-configured Viper instance: YAML file type,
// SESSIONSYNC_ env prefix, automatic env binding, and a "." → "_" key replacer
// so that "database.host" resolves to SESSIONSYNC_DATABASE_HOST.  Every key of
// Config is bound explicitly so env-only deployments unmarshal correctly.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}), "")
	return v
}

// bindEnvs walks the mapstructure tags of t and binds each leaf key.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			bindEnvs(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load builds a Config from (in increasing precedence) defaults, the YAML
// file, SESSIONSYNC_* environment variables and explicit overrides, then
// validates it.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadEnvFiles(o.envFiles); err != nil {
		return nil, err
	}

	v := newViper()
	if err := readFile(v, o); err != nil {
		return nil, err
	}
	for k, val := range o.overrides {
		v.Set(k, val)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromFile is shorthand for Load(WithConfigPath(path)).
func LoadFromFile(path string) (*Config, error) {
	return Load(WithConfigPath(path))
}

// LoadFromEnv builds a Config entirely from SESSIONSYNC_* environment
// variables and defaults, with no config file.
//
//	SESSIONSYNC_<SECTION>_<FIELD>   e.g.  SESSIONSYNC_DATABASE_HOST
func LoadFromEnv() (*Config, error) {
	return Load()
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("config: stat env file %q: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: env file %q: %v", ErrConfigParseError, p, err)
		}
	}
	return nil
}

func readFile(v *viper.Viper, o *loadOptions) error {
	switch {
	case o.configPath != "":
		if _, err := os.Stat(o.configPath); err != nil {
			return fmt.Errorf("%w: %q", ErrConfigFileNotFound, o.configPath)
		}
		v.SetConfigFile(o.configPath)
	case len(o.searchPaths) > 0:
		v.SetConfigName("config")
		for _, dir := range o.searchPaths {
			v.AddConfigPath(dir)
		}
	default:
		return nil
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	return nil
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies defaults
// and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrConfigParseError, err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is modified.  Only settings that are safe to apply at
// runtime (log level) should be acted upon by the callback.  A change that
// fails to parse or validate is reported to onError and onChange is skipped.
//
// Watch is non-blocking; viper runs the watcher goroutine.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error.  Intended for main().
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
