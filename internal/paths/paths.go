// Package paths resolves configuration and data directory locations and maps
// dataset identities to store files inside the data directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else names one.
const DefaultDataDirName = ".sheetsql-data"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SHEETSQL_CONFIG_DIR"
	EnvDataDir   = "SHEETSQL_DATA_DIR"
)

// buildPrefix marks stores that are still being materialized.
const buildPrefix = ".build-"

// identityLen is the length of a canonical UUID string.
const identityLen = 36

// sidecarSuffixes are the files SQLite may keep next to a database.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/sheetsql (fallback ~/.config/sheetsql)
// macOS:   ~/Library/Application Support/sheetsql
// Windows: %APPDATA%/sheetsql
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "sheetsql"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "sheetsql"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "sheetsql"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > SHEETSQL_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > SHEETSQL_DATA_DIR env > $(CWD)/.sheetsql-data.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// StorePath returns the deterministic location of the store for id.
func StorePath(dataDir string, id types.Identity) string {
	return filepath.Join(dataDir, id.FileName())
}

// BuildPattern returns the os.CreateTemp pattern for a store under construction.
func BuildPattern(id types.Identity) string {
	return buildPrefix + string(id) + "-*" + types.StoreExt + ".tmp"
}

// IdentityFromFileName returns the identity named by a store file name.
// Build files and files that are not stores report false.
func IdentityFromFileName(name string) (types.Identity, bool) {
	if strings.HasPrefix(name, buildPrefix) {
		return "", false
	}
	stem, ok := strings.CutSuffix(name, types.StoreExt)
	if !ok {
		return "", false
	}
	id, err := types.ParseIdentity(stem)
	if err != nil || string(id) != stem {
		return "", false
	}
	return id, true
}

// OwnerFromFileName returns the identity a data directory entry belongs to:
// its store, a SQLite sidecar of the store (journal, WAL, shared memory), or a
// build file left by a load. Any other name is foreign and reports false.
func OwnerFromFileName(name string) (types.Identity, bool) {
	if rest, ok := strings.CutPrefix(name, buildPrefix); ok {
		if len(rest) <= identityLen || rest[identityLen] != '-' {
			return "", false
		}
		stem := rest[:identityLen]
		id, err := types.ParseIdentity(stem)
		if err != nil || string(id) != stem {
			return "", false
		}
		return id, true
	}
	if id, ok := IdentityFromFileName(name); ok {
		return id, true
	}
	for _, suffix := range sidecarSuffixes {
		if stem, ok := strings.CutSuffix(name, suffix); ok {
			return IdentityFromFileName(stem)
		}
	}
	return "", false
}
