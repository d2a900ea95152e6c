package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetsql/internal/paths"
	"github.com/mesh-intelligence/sheetsql/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and data directories",
		Long: "Create the configuration directory with a default config.yaml and\n" +
			"create the data directory. Existing files are left untouched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr("resolve config dir: %v", err)
	}

	// setup already wrote a default config.yaml; record an explicit data dir
	// only when none was written before.
	configPath := filepath.Join(configDir, configFileExt)
	if a.flags.dataDir != "" && loadDataDirFromConfig(configDir) == "" {
		if err := rewriteConfigDataDir(configPath, a.cfg.DataDir); err != nil {
			return sysErr("write config: %v", err)
		}
	}

	store, err := sqlite.NewStore(a.cfg, a.logger)
	if err != nil {
		return sysErr("initialize storage: %v", err)
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"config": configPath,
			"data":   store.DataDir(),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\nData:   %s\n", configPath, store.DataDir())
	return nil
}
