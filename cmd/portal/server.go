package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/portal/internal/backup"
	"github.com/tinytelemetry/portal/internal/duckdb"
	"github.com/tinytelemetry/portal/internal/httpserver"
	"github.com/tinytelemetry/portal/internal/socketrpc"
)

const shutdownGrace = 10 * time.Second

// runServer opens the catalog and serves it until SIGINT or SIGTERM.
func runServer(parent context.Context, cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	snapshots, err := backup.NewManager(store, cfg.backupConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize snapshots: %w", err)
	}

	seeded := false
	if cfg.SeedOnStart {
		seeded, err = seedIfEmpty(parent, store, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		if seeded {
			log.Printf("seed: loaded catalog into empty store")
		}
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, store)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
		cfg.APIAddr = apiServer.Addr()
	}

	// The socket serves the terminal client locally.
	sockServer := socketrpc.NewServer(cfg.SocketPath, store)
	socketOK := true
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
		socketOK = false
	} else {
		defer sockServer.Stop()
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(shutdownGrace)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPCEnabled {
		health, err := newHealthServer(cfg.GRPCAddr, store)
		if err != nil {
			return fmt.Errorf("failed to start gRPC health server: %w", err)
		}
		cfg.GRPCAddr = health.Addr()
		g.Go(func() error { return health.Serve(gctx) })
	}

	if snapshots != nil {
		g.Go(func() error { return snapshots.Run(gctx) })
	}

	printStartupBanner(cfg, socketOK, seeded)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
		return err
	}
	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// configureRuntimeLogger sends the standard logger to the service log file;
// the terminal shows only the banner.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "portal")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "portal.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, socketOK, seeded bool) {
	fmt.Println(renderBanner(cfg, socketOK, seeded))
}

func renderBanner(cfg appConfig, socketOK, seeded bool) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔═╗╦═╗╔╦╗╔═╗╦
    ╠═╝║ ║╠╦╝ ║ ╠═╣║
    ╩  ╚═╝╩╚═ ╩ ╩ ╩╩═╝`)

	row := func(ok bool, label, value string) string {
		marker := dot
		if ok {
			marker = check
		}
		return fmt.Sprintf("    %s  %-14s %s", marker, label, value)
	}
	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(true, "HTTP API", cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(false, "HTTP API", dim.Render("disabled")))
	}
	if cfg.GRPCEnabled {
		lines = append(lines, row(true, "gRPC Health", cyan.Render(cfg.GRPCAddr)))
	} else {
		lines = append(lines, row(false, "gRPC Health", dim.Render("disabled")))
	}
	if socketOK {
		lines = append(lines, row(true, "Unix Socket", cyan.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, row(false, "Unix Socket", dim.Render("unavailable")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	storage := shortenPath(cfg.DBPath)
	if storage == "" {
		storage = "in-memory"
	}
	lines = append(lines, row(true, "Catalog", dim.Render(storage)))
	if cfg.SnapshotEnabled {
		target := shortenPath(cfg.SnapshotDir)
		if cfg.SnapshotBucketURL != "" {
			target += " → " + cfg.SnapshotBucketURL
		}
		lines = append(lines, row(true, "Snapshots", dim.Render(target)))
	} else {
		lines = append(lines, row(false, "Snapshots", dim.Render("disabled")))
	}
	if seeded {
		source := "built-in catalog"
		if cfg.SeedFile != "" {
			source = shortenPath(cfg.SeedFile)
		}
		lines = append(lines, row(true, "Seeded From", dim.Render(source)))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
