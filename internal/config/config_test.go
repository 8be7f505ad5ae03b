package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestServerDefaults(t *testing.T) {
	cfg, err := LoadServer("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketAddress() != "0.0.0.0:22200" {
		t.Fatalf("expected 0.0.0.0:22200, got %s", cfg.SocketAddress())
	}
	if cfg.BufferSize != 128 || cfg.PIDFile != "udp-service.pid" || cfg.StoreTimeout != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxSize != 100 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAge != 28 {
		t.Fatalf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestClientDefaults(t *testing.T) {
	cfg, err := LoadClient("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketAddress() != "127.0.0.1:22200" || cfg.Timeout != 3*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "udpkv.toml")
	body := "port = 1111\nbuffer-size = 64\nhost = \"10.0.0.1\"\n\n[log]\nlevel = \"warn\"\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("UDPKV_PORT", "2222")
	t.Setenv("UDPKV_LOG_LEVEL", "error")
	t.Setenv("UDPKV_STORE_TIMEOUT", "5s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 22200, "")
	flags.String("log-level", "info", "")
	flags.String("unrelated", "", "")
	if err := flags.Parse([]string{"--port", "3333"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := LoadServer(file, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3333 {
		t.Fatalf("expected flag to win, got port %d", cfg.Port)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("expected env to beat file, got %q", cfg.Log.Level)
	}
	if cfg.BufferSize != 64 || cfg.Host != "10.0.0.1" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.StoreTimeout)
	}
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("UDPKV_PORT", "70000")
	if _, err := LoadServer("", nil); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for port, got %v", err)
	}
	t.Setenv("UDPKV_PORT", "22200")
	t.Setenv("UDPKV_BUFFER_SIZE", "0")
	if _, err := LoadServer("", nil); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for buffer-size, got %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := LoadClient(filepath.Join(t.TempDir(), "nope.toml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("UDPKV_TEST_DOTENV=base\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("UDPKV_TEST_DOTENV=local\nUDPKV_TEST_LOCAL=yes\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("UDPKV_TEST_DOTENV")
		os.Unsetenv("UDPKV_TEST_LOCAL")
	})

	LoadEnvFiles(dir)
	if got := os.Getenv("UDPKV_TEST_DOTENV"); got != "base" {
		t.Fatalf("expected .env to load first, got %q", got)
	}
	if got := os.Getenv("UDPKV_TEST_LOCAL"); got != "yes" {
		t.Fatalf("expected .env.local to load, got %q", got)
	}
}

func TestServerString(t *testing.T) {
	cfg, err := LoadServer("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := cfg.String()
	for _, want := range []string{"UDP SERVER", "0.0.0.0:22200", "STORAGE", "LOGGING"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}
