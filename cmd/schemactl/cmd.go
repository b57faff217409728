package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ksred/schema-registry/internal/api"
	"github.com/ksred/schema-registry/internal/bootstrap"
	"github.com/ksred/schema-registry/internal/config"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "v0.1.0"

type options struct {
	cfgFile string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "schemactl",
		Short:        "schemactl binds the kindergarten schema and runs its migrations",
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default config.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newMigrateCmd(opts),
		newStatusCmd(opts),
		newUndoCmd(opts),
		newCatalogCmd(opts),
		newServeCmd(opts),
	)

	return root
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(opts, func(core *bootstrap.Core) error {
				ran, err := core.Runner.Run(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), map[string][]string{"applied": ran})
				}
				if len(ran) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
					return nil
				}
				for _, name := range ran {
					fmt.Fprintf(cmd.OutOrStdout(), "== %s: migrated\n", name)
				}
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(opts, func(core *bootstrap.Core) error {
				status, err := core.Runner.Status(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), status)
				}
				out := cmd.OutOrStdout()
				for _, name := range status.Applied {
					fmt.Fprintf(out, "up   %s\n", name)
				}
				for _, name := range status.Pending {
					fmt.Fprintf(out, "down %s\n", name)
				}
				for _, name := range status.Unknown {
					fmt.Fprintf(out, "?    %s (not registered)\n", name)
				}
				return nil
			})
		},
	}
}

func newUndoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(opts, func(core *bootstrap.Core) error {
				name, err := core.Runner.Undo(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"reverted": name})
				}
				if name == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No executed migrations found")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "== %s: reverted\n", name)
				return nil
			})
		},
	}
}

func newCatalogCmd(opts *options) *cobra.Command {
	var ddl bool

	c := &cobra.Command{
		Use:   "catalog",
		Short: "Print the registered table definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(opts, func(core *bootstrap.Core) error {
				defs := core.Registry.Definitions()
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), defs)
				}
				for _, def := range defs {
					printDefinition(cmd.OutOrStdout(), def)
					if ddl {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s;\n", registry.CreateTableSQL(core.Registry.DB(), def))
					}
				}
				return nil
			})
		},
	}

	c.Flags().BoolVar(&ddl, "ddl", false, "also print the CREATE TABLE statement")
	return c
}

func newServeCmd(opts *options) *cobra.Command {
	var port int

	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(opts, func(core *bootstrap.Core) error {
				if port == 0 {
					port = core.Cfg.HTTP.Port
				}
				return serve(core, port)
			})
		},
	}

	c.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return c
}

func serve(core *bootstrap.Core, port int) error {
	server, err := api.NewServer(core)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.Start(port)
	}()

	select {
	case sig := <-sigChan:
		core.Logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErrChan:
		core.Logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		core.Logger.Error().Err(err).Msg("Failed to gracefully shutdown HTTP server")
		return err
	}

	core.Logger.Info().Msg("Shutdown complete")
	return nil
}

// withCore runs fn with a connected core and closes it afterwards
func withCore(opts *options, fn func(core *bootstrap.Core) error) error {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return err
	}

	logger := setupLogging(cfg)

	core, err := bootstrap.NewCore(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize schema registry")
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	return fn(core)
}

func setupLogging(cfg *config.Config) zerolog.Logger {
	return utils.SetupGlobalLogger(loggerConfig(cfg))
}

// loggerConfig starts from the development preset in debug mode, otherwise
// from the defaults with the configured level
func loggerConfig(cfg *config.Config) utils.LoggerConfig {
	lc := utils.DefaultConfig()
	if cfg.Server.Debug {
		lc = utils.DevelopmentConfig()
	} else if cfg.Server.LogLevel != "" {
		lc.Level = cfg.Server.LogLevel
	}
	lc.LogFile = cfg.Server.LogFile
	lc.Service = "schemactl"
	return lc
}

func printDefinition(w io.Writer, def *registry.Definition) {
	names := def.ColumnNames()
	if len(names) == 0 {
		names = []string{"(no columns)"}
	}
	fmt.Fprintf(w, "%s [timestamps=%t] %s\n", def.Table, def.Options.Timestamps, strings.Join(names, ", "))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
