package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Threads != uint(runtime.NumCPU()) {
		t.Errorf("expected %d threads, got %d", runtime.NumCPU(), cfg.Threads)
	}
	if cfg.Timeout != 3*time.Minute {
		t.Errorf("expected a 3m timeout, got %v", cfg.Timeout)
	}
	if cfg.RateLimit != 0 || cfg.SSLSupport || cfg.Force {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
url: http://ftp.example.org/pub/file.iso
threads: 12
mirrors:
  - http://m1.example.org/pub
  - http://m2.example.org/pub
timeout: 45s
limit_rate: 512K
headers:
  X-Token: abc
force: true
`
	configPath := filepath.Join(t.TempDir(), "zou.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	want := Default()
	want.URL = "http://ftp.example.org/pub/file.iso"
	want.Threads = 12
	want.Mirrors = []string{"http://m1.example.org/pub", "http://m2.example.org/pub"}
	want.Timeout = 45 * time.Second
	want.RateLimit = 512 * 1024
	want.Headers = map[string]string{"X-Token": "abc"}
	want.Force = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	dir := t.TempDir()
	for name, content := range map[string]string{
		"invalid.yaml": "threads: [",
		"timeout.yaml": "timeout: soon",
		"rate.yaml":    "limit_rate: quick",
		"keep.yaml":    "keep_alive_timeout: later",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromFile(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ZOU_THREADS", "3")
	t.Setenv("ZOU_MIRRORS", "http://a.example.org, http://b.example.org,")
	t.Setenv("ZOU_SSL_SUPPORT", "1")
	t.Setenv("ZOU_TIMEOUT", "10s")
	t.Setenv("ZOU_LIMIT_RATE", "1M")
	t.Setenv("ZOU_USERNAME", "alice")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Threads != 3 {
		t.Errorf("expected 3 threads, got %d", cfg.Threads)
	}
	if diff := cmp.Diff([]string{"http://a.example.org", "http://b.example.org"}, cfg.Mirrors); diff != "" {
		t.Errorf("mirrors mismatch (-want +got):\n%s", diff)
	}
	if !cfg.SSLSupport || cfg.Timeout != 10*time.Second || cfg.RateLimit != 1<<20 || cfg.Username != "alice" {
		t.Errorf("unexpected config %+v", cfg)
	}

	t.Setenv("ZOU_THREADS", "many")
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected an error for a non-numeric ZOU_THREADS")
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.URL = "http://from-file.example.org/f"
	base.Headers = map[string]string{"A": "1", "B": "2"}
	base.Mirrors = []string{"http://m1"}

	merged := base.Merge(Config{Threads: 7, Headers: map[string]string{"B": "3"}, Force: true})
	if merged.URL != base.URL {
		t.Errorf("zero override replaced URL: %q", merged.URL)
	}
	if merged.Threads != 7 || !merged.Force {
		t.Errorf("overrides not applied: %+v", merged)
	}
	if diff := cmp.Diff(map[string]string{"A": "1", "B": "3"}, merged.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http://m1"}, merged.Mirrors); diff != "" {
		t.Errorf("mirrors mismatch (-want +got):\n%s", diff)
	}
	if base.Headers["B"] != "2" {
		t.Error("Merge modified the receiver's headers")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.URL = "http://ftp.example.org/pub/file.iso"

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantField: "url"},
		{name: "zero threads", mutate: func(c *Config) { c.Threads = 0 }, wantField: "threads"},
		{name: "bad mirror", mutate: func(c *Config) { c.Mirrors = []string{"not a url"} }, wantField: "mirrors"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantField: "timeout"},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit = -1 }, wantField: "limit_rate"},
		{name: "bad proxy", mutate: func(c *Config) { c.ProxyURL = "::nope" }, wantField: "proxy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var fields FieldErrors
			if !errors.As(err, &fields) {
				t.Fatalf("expected FieldErrors, got %v", err)
			}
			if !strings.HasPrefix(fields[0].Field, tt.wantField) {
				t.Errorf("expected an error on %s, got %v", tt.wantField, fields)
			}
		})
	}
}

func TestTLSEnabled(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{cfg: Config{URL: "http://example.org/f"}, want: false},
		{cfg: Config{URL: "https://example.org/f"}, want: true},
		{cfg: Config{URL: "http://example.org/f", SSLSupport: true}, want: true},
		{cfg: Config{URL: "http://example.org/f", Mirrors: []string{"https://m.example.org"}}, want: true},
	}
	for _, tt := range tests {
		if got := tt.cfg.TLSEnabled(); got != tt.want {
			t.Errorf("TLSEnabled(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestHTTPClientConfigSplitsProxyCredentials(t *testing.T) {
	cfg := Default()
	cfg.URL = "http://example.org/f"
	cfg.Threads = 8
	cfg.ProxyURL = "http://bob:pw@proxy.example.org:3128"

	client := cfg.HTTPClientConfig()
	if client.ProxyURL != "http://proxy.example.org:3128" || client.ProxyUsername != "bob" || client.ProxyPassword != "pw" {
		t.Errorf("unexpected proxy settings %+v", client)
	}
	if !client.HighThreadMode {
		t.Error("expected high thread mode above 5 threads")
	}
	if client.EnableTLS {
		t.Error("expected TLS to stay disabled for an http URL")
	}
}
