package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/portal/internal/backup"
	"github.com/tinytelemetry/portal/internal/model"
	"github.com/tinytelemetry/portal/internal/socketrpc"
)

const (
	defaultBindHost     = "127.0.0.1"
	defaultAPIPort      = model.DefaultAPIPort
	defaultGRPCPort     = 9644
	defaultQueryTimeout = 30 * time.Second

	defaultSnapshotInterval = 6 * time.Hour
	defaultSnapshotKeep     = 24
)

// appConfig is internal runtime configuration.
type appConfig struct {
	Host         string        `mapstructure:"host"`
	APIEnabled   bool          `mapstructure:"api-enabled"`
	APIPort      int           `mapstructure:"api-port"`
	APIAddr      string        `mapstructure:"api-addr"`
	GRPCEnabled  bool          `mapstructure:"grpc-enabled"`
	GRPCPort     int           `mapstructure:"grpc-port"`
	GRPCAddr     string        `mapstructure:"grpc-addr"`
	DBPath       string        `mapstructure:"db-path"`
	SocketPath   string        `mapstructure:"socket-path"`
	SeedFile     string        `mapstructure:"seed-file"`
	SeedOnStart  bool          `mapstructure:"seed-on-start"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`

	SnapshotEnabled     bool          `mapstructure:"snapshot-enabled"`
	SnapshotInterval    time.Duration `mapstructure:"snapshot-interval"`
	SnapshotDir         string        `mapstructure:"snapshot-dir"`
	SnapshotKeep        int           `mapstructure:"snapshot-keep"`
	SnapshotBucketURL   string        `mapstructure:"snapshot-bucket-url"`
	SnapshotS3Endpoint  string        `mapstructure:"snapshot-s3-endpoint"`
	SnapshotS3Region    string        `mapstructure:"snapshot-s3-region"`
	SnapshotS3AccessKey string        `mapstructure:"snapshot-s3-access-key"`
	SnapshotS3SecretKey string        `mapstructure:"snapshot-s3-secret-key"`
	SnapshotS3Session   string        `mapstructure:"snapshot-s3-session-token"`
	SnapshotS3UseSSL    bool          `mapstructure:"snapshot-s3-use-ssl"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

// loadConfig layers defaults, the config file, PORTAL_* env vars and any
// flags the caller changed, in increasing precedence.
func loadConfig(configPath string, flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("grpc-enabled", true)
	v.SetDefault("grpc-port", defaultGRPCPort)
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "portal", "portal.duckdb"))
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("seed-file", "")
	v.SetDefault("seed-on-start", true)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("snapshot-enabled", false)
	v.SetDefault("snapshot-interval", defaultSnapshotInterval)
	v.SetDefault("snapshot-dir", filepath.Join(home, ".local", "share", "portal", "snapshots"))
	v.SetDefault("snapshot-keep", defaultSnapshotKeep)
	v.SetDefault("snapshot-bucket-url", "")
	v.SetDefault("snapshot-s3-endpoint", "")
	v.SetDefault("snapshot-s3-region", "")
	v.SetDefault("snapshot-s3-access-key", "")
	v.SetDefault("snapshot-s3-secret-key", "")
	v.SetDefault("snapshot-s3-session-token", "")
	v.SetDefault("snapshot-s3-use-ssl", true)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "portal", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.GRPCPort <= 0 || cfg.GRPCPort > 65535 {
		return cfg, fmt.Errorf("invalid grpc-port: %d", cfg.GRPCPort)
	}
	if cfg.GRPCEnabled && cfg.APIEnabled && cfg.GRPCPort == cfg.APIPort {
		return cfg, fmt.Errorf("grpc-port and api-port are both %d", cfg.APIPort)
	}
	if cfg.SnapshotEnabled && cfg.SnapshotInterval < time.Minute {
		return cfg, fmt.Errorf("snapshot-interval must be at least 1m, got %s", cfg.SnapshotInterval)
	}
	if cfg.QueryTimeout <= 0 {
		return cfg, fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}

	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)
	cfg.SeedFile = expandHome(home, cfg.SeedFile)
	cfg.SnapshotDir = expandHome(home, cfg.SnapshotDir)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.GRPCPort))
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c appConfig) backupConfig() backup.Config {
	return backup.Config{
		Enabled:  c.SnapshotEnabled,
		Interval: c.SnapshotInterval,
		LocalDir: c.SnapshotDir,
		KeepLast: c.SnapshotKeep,
		Bucket: backup.S3Config{
			URL:          c.SnapshotBucketURL,
			Endpoint:     c.SnapshotS3Endpoint,
			Region:       c.SnapshotS3Region,
			AccessKey:    c.SnapshotS3AccessKey,
			SecretKey:    c.SnapshotS3SecretKey,
			SessionToken: c.SnapshotS3Session,
			UseSSL:       c.SnapshotS3UseSSL,
		},
	}
}
