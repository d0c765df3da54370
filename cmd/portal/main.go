package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/portal/internal/duckdb"
	"github.com/tinytelemetry/portal/internal/seed"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "portal",
		Short:         "Dashboard catalog service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/portal/config.yml)")

	serve := serveCmd(&configPath)
	// A bare "portal" runs the service.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, seedCmd(&configPath), exportCmd(&configPath), versionCmd())
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API, socket RPC and gRPC health listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.String("host", defaultBindHost, "bind host for the TCP listeners")
	f.Int("api-port", defaultAPIPort, "REST API port")
	f.Int("grpc-port", defaultGRPCPort, "gRPC health port")
	f.String("db-path", "", "DuckDB catalog path (default is $HOME/.local/share/portal/portal.duckdb)")
	f.Bool("seed-on-start", true, "seed an empty catalog on startup")
	return cmd
}

func seedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML catalog into the store",
		Long: `Load widgets and dashboards into the catalog store.

Without --file the built-in catalog is used. Existing entries with the
same name or URL are replaced. Stop the service first: the store allows
a single writer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, nil)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if file != "" {
				cfg.SeedFile = file
			}

			store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer store.Close()

			catalog, err := loadCatalog(cfg.SeedFile)
			if err != nil {
				return err
			}
			if err := seed.Apply(cmd.Context(), store, catalog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d widgets and %d dashboards into %s\n",
				len(catalog.Widgets), len(catalog.Dashboards), shortenPath(cfg.DBPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Copy a consistent snapshot of the catalog database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, nil)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer store.Close()

			if err := store.ExportTo(args[0]); err != nil {
				if errors.Is(err, duckdb.ErrInMemoryStore) {
					return errors.New("export needs a db-path; the catalog is in memory")
				}
				return fmt.Errorf("exporting catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", shortenPath(cfg.DBPath), args[0])
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Portal - Dashboard Catalog Service\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}

// loadCatalog reads path, or returns the built-in catalog when path is empty.
func loadCatalog(path string) (seed.Catalog, error) {
	if path == "" {
		return seed.Default(), nil
	}
	return seed.Load(path)
}

// seedIfEmpty applies the catalog only to a store with no widgets and no
// dashboards, so user edits survive restarts.
func seedIfEmpty(ctx context.Context, store *duckdb.Store, path string) (bool, error) {
	widgets, dashboards, err := store.Counts(ctx)
	if err != nil {
		return false, fmt.Errorf("counting catalog: %w", err)
	}
	if widgets > 0 || dashboards > 0 {
		return false, nil
	}
	catalog, err := loadCatalog(path)
	if err != nil {
		return false, err
	}
	if err := seed.Apply(ctx, store, catalog); err != nil {
		return false, err
	}
	return true, nil
}
