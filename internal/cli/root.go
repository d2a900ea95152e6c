// Package cli implements the sheetsql command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/logging"
	"github.com/mesh-intelligence/sheetsql/internal/paths"
	"github.com/mesh-intelligence/sheetsql/pkg/sheetsql"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errSystem marks failures of the environment rather than of the input.
var errSystem = errors.New("system error")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by the subcommands of one root command.
type app struct {
	flags  rootFlags
	cfg    types.Config
	logger *zap.Logger
}

// NewRootCmd creates the top-level "sheetsql" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "sheetsql",
		Short: "Query uploaded spreadsheets with SQL",
		Long: "sheetsql turns CSV and XLSX files into short-lived SQLite datasets\n" +
			"addressed by UUID, runs SQL against them, and deletes them once they\n" +
			"outlive the retention window.",
		Version: sheetsql.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .sheetsql-data)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newIngestCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newSchemaCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newSweepCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errSystem), errors.Is(err, types.ErrStorageUnavailable):
		return exitSysError
	default:
		return exitUserError
	}
}

// sysErr wraps err so that it exits with exitSysError.
func sysErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errSystem, fmt.Sprintf(format, args...))
}

// setup loads .env, the config file, and the logger.
func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sysErr("load .env: %v", err)
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr("resolve config dir: %v", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysErr("%v", err)
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, loadDataDirFromConfig(configDir))
	if err != nil {
		return sysErr("resolve data dir: %v", err)
	}

	cfg, err := storeConfig(v, dataDir)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level: v.GetString(cfgKeyLogLevel),
		File:  v.GetString(cfgKeyLogFile),
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.logger = logger
	return nil
}
