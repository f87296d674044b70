package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/config"
	"github.com/bankline-dev/bankline/internal/pgstore"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name, backend, dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bankline home directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.home
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name)
			cfg.Storage.Backend = backend
			if backend == config.BackendPostgres {
				cfg.Storage.DataDir = ""
				cfg.Storage.DSN = dsn
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runInit(cmd, absDir, cfg)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "bank name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&backend, "backend", config.BackendCSV, "storage backend: csv or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, cfg *config.Config) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	dirs := []string{"logs"}
	if cfg.Storage.Backend == config.BackendCSV {
		dirs = append(dirs, cfg.Storage.DataDir)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if cfg.Storage.Backend == config.BackendPostgres {
		pool, err := pgstore.Connect(cmd.Context(), cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pgstore.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s at %s (%s storage)\n", cfg.Bank.Name, dir, cfg.Storage.Backend)
	return nil
}
