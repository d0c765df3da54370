package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/portal/internal/apiclient"
	"github.com/tinytelemetry/portal/internal/model"
	"github.com/tinytelemetry/portal/internal/socketrpc"
	"github.com/tinytelemetry/portal/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var apiURL string
	var socketPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/portal/config.yml)")
	flag.StringVar(&apiURL, "api", "", "REST base URL of the portal service (selects the http transport)")
	flag.StringVar(&socketPath, "socket", "", "socket path of the portal service (selects the socket transport)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Portal CLI - Dashboard Designer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case apiURL != "" && socketPath != "":
		fmt.Fprintln(os.Stderr, "Error: -api and -socket are mutually exclusive")
		os.Exit(2)
	case apiURL != "":
		cfg.APIURL = apiURL
		cfg.Transport = transportHTTP
	case socketPath != "":
		cfg.SocketPath = socketPath
		cfg.Transport = transportSocket
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect builds the API for the configured transport. The returned func
// releases the socket connection, if any.
func connect(cfg cliConfig) (model.PortalAPI, string, func(), error) {
	if cfg.Transport == transportSocket {
		client, err := socketrpc.Dial(cfg.SocketPath)
		if err != nil {
			return nil, "", nil, fmt.Errorf("cannot connect to portal service at %s: %w\nIs the portal service running? Start it with: portal", cfg.SocketPath, err)
		}
		return client, "Socket", func() { _ = client.Close() }, nil
	}
	client := apiclient.New(cfg.APIURL, apiclient.WithTimeout(cfg.RequestTimeout))
	host := strings.TrimPrefix(strings.TrimPrefix(client.BaseURL(), "http://"), "https://")
	return client, "HTTP " + host, func() {}, nil
}

func runTUI(cfg cliConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	api, source, disconnect, err := connect(cfg)
	if err != nil {
		return err
	}
	defer disconnect()
	log.Printf("tui: using %s transport (%s)", cfg.Transport, source)

	deps := tui.Deps{
		API:                api,
		DataSource:         source,
		NoticeDuration:     cfg.NoticeDuration,
		RequestTimeout:     cfg.RequestTimeout,
		ReverseScrollWheel: cfg.ReverseScrollWheel,
	}
	app := tui.NewApp(
		tui.NewListingPage(deps),
		tui.NewCreatePage(deps),
		tui.NewDesignerPage(deps),
	)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// configureRuntimeLogger keeps log output off the terminal the UI owns.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "portal")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "portal-tui.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
