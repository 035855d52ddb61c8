package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/internal/world"
	"github.com/ajitpratap0/objectpool/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		count int
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration with a pool for every entity type",
		Long: `Write the default configuration, with one pool entry per entity type the
world can spawn, to the given path (pools.yaml by default).

Example:
  objectpool config init pools.yaml --count 32`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "pools.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := writeStarterConfig(path, count, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 16, "Initial instance count of every pool")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// starterConfig is the default configuration with one pool per world type
func starterConfig(count int) *config.Config {
	cfg := config.Default()
	for _, name := range world.NewDefault(world.WithLogger(zap.NewNop())).Types() {
		cfg.Pools = append(cfg.Pools, config.PoolEntry{Type: name, Count: count})
	}
	return cfg
}

func writeStarterConfig(path string, count int, force bool) error {
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	return config.Save(path, starterConfig(count))
}
