// Package config holds the download settings of the zou CLI.
//
// Settings are layered, lowest precedence first: built-in defaults, a YAML
// file given with --config, ZOU_* environment variables, then command-line
// flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/k0pernicus/zou/internal/utils"
	"gopkg.in/yaml.v3"
)

type Config struct {
	URL              string            `yaml:"url" validate:"required,url"`
	Output           string            `yaml:"output"`
	Threads          uint              `yaml:"threads" validate:"min=1"`
	Mirrors          []string          `yaml:"mirrors" validate:"dive,url"`
	SSLSupport       bool              `yaml:"ssl_support"`
	Force            bool              `yaml:"force"`
	Debug            bool              `yaml:"debug"`
	Username         string            `yaml:"username"`
	Password         string            `yaml:"password"`
	Timeout          time.Duration     `yaml:"timeout" validate:"gt=0"`
	KeepAliveTimeout time.Duration     `yaml:"keep_alive_timeout" validate:"gte=0"`
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers"`
	ProxyURL         string            `yaml:"proxy" validate:"omitempty,url"`
	RateLimit        int64             `yaml:"limit_rate" validate:"gte=0"` // bytes per second, 0 is unlimited
	NoProgress       bool              `yaml:"no_progress"`
}

func Default() Config {
	return Config{
		Threads:          uint(runtime.NumCPU()),
		Timeout:          3 * time.Minute,
		KeepAliveTimeout: 90 * time.Second,
	}
}

// yamlConfig keeps durations and sizes as strings so "30s" and "512K" work.
type yamlConfig struct {
	URL              string            `yaml:"url"`
	Output           string            `yaml:"output"`
	Threads          uint              `yaml:"threads"`
	Mirrors          []string          `yaml:"mirrors"`
	SSLSupport       bool              `yaml:"ssl_support"`
	Force            bool              `yaml:"force"`
	Debug            bool              `yaml:"debug"`
	Username         string            `yaml:"username"`
	Password         string            `yaml:"password"`
	Timeout          string            `yaml:"timeout"`
	KeepAliveTimeout string            `yaml:"keep_alive_timeout"`
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers"`
	ProxyURL         string            `yaml:"proxy"`
	RateLimit        string            `yaml:"limit_rate"`
	NoProgress       bool              `yaml:"no_progress"`
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		URL:        yc.URL,
		Output:     yc.Output,
		Threads:    yc.Threads,
		Mirrors:    yc.Mirrors,
		SSLSupport: yc.SSLSupport,
		Force:      yc.Force,
		Debug:      yc.Debug,
		Username:   yc.Username,
		Password:   yc.Password,
		UserAgent:  yc.UserAgent,
		Headers:    yc.Headers,
		ProxyURL:   yc.ProxyURL,
		NoProgress: yc.NoProgress,
	}
	if yc.Timeout != "" {
		if override.Timeout, err = time.ParseDuration(yc.Timeout); err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
	}
	if yc.KeepAliveTimeout != "" {
		if override.KeepAliveTimeout, err = time.ParseDuration(yc.KeepAliveTimeout); err != nil {
			return Config{}, fmt.Errorf("parse keep_alive_timeout: %w", err)
		}
	}
	if yc.RateLimit != "" {
		if override.RateLimit, err = utils.ParseBytes(yc.RateLimit); err != nil {
			return Config{}, fmt.Errorf("parse limit_rate: %w", err)
		}
	}
	return Default().Merge(override), nil
}

// LoadFromEnv applies ZOU_* environment variables to c.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ZOU_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("ZOU_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("ZOU_THREADS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return fmt.Errorf("parse ZOU_THREADS: %w", err)
		}
		c.Threads = uint(n)
	}
	if v := os.Getenv("ZOU_MIRRORS"); v != "" {
		c.Mirrors = nil
		for _, mirror := range strings.Split(v, ",") {
			if mirror = strings.TrimSpace(mirror); mirror != "" {
				c.Mirrors = append(c.Mirrors, mirror)
			}
		}
	}
	if v := os.Getenv("ZOU_SSL_SUPPORT"); v != "" {
		c.SSLSupport = v == "true" || v == "1"
	}
	if v := os.Getenv("ZOU_FORCE"); v != "" {
		c.Force = v == "true" || v == "1"
	}
	if v := os.Getenv("ZOU_DEBUG"); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv("ZOU_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("ZOU_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("ZOU_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZOU_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("ZOU_KEEP_ALIVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZOU_KEEP_ALIVE_TIMEOUT: %w", err)
		}
		c.KeepAliveTimeout = d
	}
	if v := os.Getenv("ZOU_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("ZOU_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("ZOU_LIMIT_RATE"); v != "" {
		n, err := utils.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse ZOU_LIMIT_RATE: %w", err)
		}
		c.RateLimit = n
	}
	if v := os.Getenv("ZOU_NO_PROGRESS"); v != "" {
		c.NoProgress = v == "true" || v == "1"
	}
	return nil
}

// Merge returns c with every non-zero field of override applied.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.Threads != 0 {
		c.Threads = override.Threads
	}
	if len(override.Mirrors) > 0 {
		c.Mirrors = override.Mirrors
	}
	if override.SSLSupport {
		c.SSLSupport = true
	}
	if override.Force {
		c.Force = true
	}
	if override.Debug {
		c.Debug = true
	}
	if override.Username != "" {
		c.Username = override.Username
	}
	if override.Password != "" {
		c.Password = override.Password
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.KeepAliveTimeout != 0 {
		c.KeepAliveTimeout = override.KeepAliveTimeout
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(override.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		c.Headers = headers
	}
	if override.ProxyURL != "" {
		c.ProxyURL = override.ProxyURL
	}
	if override.RateLimit != 0 {
		c.RateLimit = override.RateLimit
	}
	if override.NoProgress {
		c.NoProgress = true
	}
	return c
}

// TLSEnabled reports whether https:// URLs may be fetched.
func (c Config) TLSEnabled() bool {
	if c.SSLSupport {
		return true
	}
	if strings.HasPrefix(strings.ToLower(c.URL), "https://") {
		return true
	}
	for _, mirror := range c.Mirrors {
		if strings.HasPrefix(strings.ToLower(mirror), "https://") {
			return true
		}
	}
	return false
}

// HTTPClientConfig builds the transport settings for this download.
func (c Config) HTTPClientConfig() utils.HTTPClientConfig {
	cfg := utils.HTTPClientConfig{
		Timeout:        c.Timeout,
		KATimeout:      c.KeepAliveTimeout,
		UserAgent:      c.UserAgent,
		Headers:        c.Headers,
		EnableTLS:      c.TLSEnabled(),
		HighThreadMode: c.Threads > 5,
	}
	if c.ProxyURL != "" {
		if parsed, err := url.Parse(c.ProxyURL); err == nil && parsed.User != nil {
			cfg.ProxyUsername = parsed.User.Username()
			cfg.ProxyPassword, _ = parsed.User.Password()
			parsed.User = nil
			cfg.ProxyURL = parsed.String()
		} else {
			cfg.ProxyURL = c.ProxyURL
		}
	}
	return cfg
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("config: failed to get 'en' translator")
	}
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
}

// FieldError is a single invalid setting.
type FieldError struct {
	Field string
	Err   string
}

type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			fields = append(fields, FieldError{Field: verror.Field(), Err: verror.Translate(translator)})
		}
		return fields
	}
	return nil
}
