package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/portal/internal/model"
	"github.com/tinytelemetry/portal/internal/socketrpc"
)

const (
	transportHTTP   = "http"
	transportSocket = "socket"
)

// cliConfig holds only client-relevant configuration.
type cliConfig struct {
	APIURL             string        `mapstructure:"api-url"`
	Transport          string        `mapstructure:"transport"`
	SocketPath         string        `mapstructure:"socket-path"`
	RequestTimeout     time.Duration `mapstructure:"request-timeout"`
	NoticeDuration     time.Duration `mapstructure:"notice-duration"`
	ReverseScrollWheel bool          `mapstructure:"reverse-scroll-wheel"`
}

func defaultAPIURL() string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(model.DefaultAPIPort))
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", defaultAPIURL())
	v.SetDefault("transport", model.DefaultTransport)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("request-timeout", model.DefaultRequestTimeout)
	v.SetDefault("notice-duration", model.DefaultNoticeDuration)
	v.SetDefault("reverse-scroll-wheel", false)

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
	if strings.HasPrefix(cfg.SocketPath, "~/") {
		cfg.SocketPath = filepath.Join(home, cfg.SocketPath[2:])
	}
	return cfg, cfg.validate()
}

func (c cliConfig) validate() error {
	switch c.Transport {
	case transportHTTP:
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid api-url: %q", c.APIURL)
		}
	case transportSocket:
		if c.SocketPath == "" {
			return errors.New("socket-path is empty")
		}
	default:
		return fmt.Errorf("invalid transport %q (want %s or %s)", c.Transport, transportHTTP, transportSocket)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request-timeout: %s", c.RequestTimeout)
	}
	if c.NoticeDuration <= 0 {
		return fmt.Errorf("invalid notice-duration: %s", c.NoticeDuration)
	}
	return nil
}
