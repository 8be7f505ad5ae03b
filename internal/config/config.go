// Package config loads server and client settings from defaults, an optional
// config file, UDPKV_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "udpkv"

var ErrInvalid = errors.New("invalid configuration")

type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type ServerConfig struct {
	Name         string
	Host         string
	Port         int
	BufferSize   int
	DataFolder   string
	DataFile     string
	PIDFile      string
	HTTPAddr     string
	StoreTimeout time.Duration
	Log          LogConfig
}

type ClientConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// flag name -> config key, for keys whose flag spelling differs
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-file":  "log.file",
}

// LoadEnvFiles loads .env and .env.local from dir. Variables already present
// in the environment win. Missing files are ignored.
func LoadEnvFiles(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	_ = godotenv.Load(filepath.Join(dir, ".env.local"))
}

func newViper(file string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok {
				key = f.Name
			}
			if _, known := defaults[key]; !known {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}
	return v, nil
}

func serverDefaults() map[string]any {
	return map[string]any{
		"name":            "udp-service",
		"host":            "0.0.0.0",
		"port":            22200,
		"buffer-size":     128,
		"data-folder":     "./data",
		"data-file":       "",
		"pid-file":        "udp-service.pid",
		"http-addr":       "",
		"store-timeout":   30 * time.Second,
		"log.level":       "info",
		"log.file":        "",
		"log.max-size":    100,
		"log.max-backups": 3,
		"log.max-age":     28,
		"log.compress":    false,
	}
}

func clientDefaults() map[string]any {
	return map[string]any{
		"host":    "127.0.0.1",
		"port":    22200,
		"timeout": 3 * time.Second,
	}
}

// LoadServer resolves the server configuration. Precedence is flag, then
// environment, then file, then default.
func LoadServer(file string, flags *pflag.FlagSet) (ServerConfig, error) {
	v, err := newViper(file, flags, serverDefaults())
	if err != nil {
		return ServerConfig{}, err
	}
	cfg := ServerConfig{
		Name:         v.GetString("name"),
		Host:         v.GetString("host"),
		Port:         v.GetInt("port"),
		BufferSize:   v.GetInt("buffer-size"),
		DataFolder:   v.GetString("data-folder"),
		DataFile:     v.GetString("data-file"),
		PIDFile:      v.GetString("pid-file"),
		HTTPAddr:     v.GetString("http-addr"),
		StoreTimeout: v.GetDuration("store-timeout"),
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			MaxSize:    v.GetInt("log.max-size"),
			MaxBackups: v.GetInt("log.max-backups"),
			MaxAge:     v.GetInt("log.max-age"),
			Compress:   v.GetBool("log.compress"),
		},
	}
	if err := validatePort(cfg.Port); err != nil {
		return ServerConfig{}, err
	}
	if cfg.BufferSize <= 0 {
		return ServerConfig{}, fmt.Errorf("%w: buffer-size must be positive, got %d", ErrInvalid, cfg.BufferSize)
	}
	return cfg, nil
}

func LoadClient(file string, flags *pflag.FlagSet) (ClientConfig, error) {
	v, err := newViper(file, flags, clientDefaults())
	if err != nil {
		return ClientConfig{}, err
	}
	cfg := ClientConfig{
		Host:    v.GetString("host"),
		Port:    v.GetInt("port"),
		Timeout: v.GetDuration("timeout"),
	}
	if err := validatePort(cfg.Port); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, port)
	}
	return nil
}

func (c ServerConfig) SocketAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ClientConfig) SocketAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-16s: %s\n", name, value))
	}

	addSection("UDP Server")
	addField("Name", c.Name)
	addField("Address", c.SocketAddress())
	addField("Buffer Size", fmt.Sprintf("%d bytes", c.BufferSize))
	addField("PID File", c.PIDFile)
	if c.HTTPAddr != "" {
		addField("HTTP Address", c.HTTPAddr)
	}

	addSection("Storage")
	addField("Data Folder", c.DataFolder)
	if c.DataFile != "" {
		addField("Preload", c.DataFile)
	}
	addField("Timeout", c.StoreTimeout.String())

	addSection("Logging")
	addField("Level", c.Log.Level)
	if c.Log.File != "" {
		addField("File", c.Log.File)
		addField("Rotation", fmt.Sprintf("%d MB, %d backups, %d days", c.Log.MaxSize, c.Log.MaxBackups, c.Log.MaxAge))
	}
	return sb.String()
}
