package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sheetsql/internal/logging"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "SHEETSQL"
)

// Config keys.
const (
	cfgKeyDataDir        = "data_dir"
	cfgKeyListenAddr     = "listen_addr"
	cfgKeyRetention      = "retention"
	cfgKeySweepInterval  = "sweep_interval"
	cfgKeyReserved       = "reserved"
	cfgKeyQueryTimeout   = "query_timeout"
	cfgKeyBusyTimeout    = "busy_timeout"
	cfgKeyMaxUploadBytes = "max_upload_bytes"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogFile        = "log_file"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	DataDir        string   `yaml:"data_dir,omitempty"`
	ListenAddr     string   `yaml:"listen_addr"`
	Retention      string   `yaml:"retention"`
	SweepInterval  string   `yaml:"sweep_interval"`
	Reserved       []string `yaml:"reserved"`
	QueryTimeout   string   `yaml:"query_timeout"`
	BusyTimeout    string   `yaml:"busy_timeout"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	LogLevel       string   `yaml:"log_level"`
}

// defaultConfigFile returns the defaults as they appear in config.yaml.
func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir:        dataDir,
		ListenAddr:     types.DefaultListenAddr,
		Retention:      types.DefaultRetention.String(),
		SweepInterval:  types.DefaultSweepInterval.String(),
		Reserved:       []string{types.DefaultReservedIdentity.String()},
		QueryTimeout:   time.Duration(0).String(),
		BusyTimeout:    types.DefaultBusyTimeout.String(),
		MaxUploadBytes: types.DefaultMaxUploadBytes,
		LogLevel:       logging.DefaultLevel,
	}
}

// loadConfig reads config.yaml from configDir using Viper, with SHEETSQL_*
// environment variables taking precedence over the file. It creates the
// directory and a default config.yaml on first run. A missing config.yaml is
// not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	defaults := defaultConfigFile("")
	v.SetDefault(cfgKeyListenAddr, defaults.ListenAddr)
	v.SetDefault(cfgKeyRetention, defaults.Retention)
	v.SetDefault(cfgKeySweepInterval, defaults.SweepInterval)
	v.SetDefault(cfgKeyReserved, defaults.Reserved)
	v.SetDefault(cfgKeyQueryTimeout, defaults.QueryTimeout)
	v.SetDefault(cfgKeyBusyTimeout, defaults.BusyTimeout)
	v.SetDefault(cfgKeyMaxUploadBytes, defaults.MaxUploadBytes)
	v.SetDefault(cfgKeyLogLevel, defaults.LogLevel)
	v.SetDefault(cfgKeyLogFile, "")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// storeConfig builds and validates the store configuration from v.
func storeConfig(v *viper.Viper, dataDir string) (types.Config, error) {
	cfg := types.Config{
		DataDir:        dataDir,
		Retention:      v.GetDuration(cfgKeyRetention),
		SweepInterval:  v.GetDuration(cfgKeySweepInterval),
		QueryTimeout:   v.GetDuration(cfgKeyQueryTimeout),
		BusyTimeout:    v.GetDuration(cfgKeyBusyTimeout),
		ListenAddr:     v.GetString(cfgKeyListenAddr),
		MaxUploadBytes: v.GetInt64(cfgKeyMaxUploadBytes),
	}
	for _, r := range v.GetStringSlice(cfgKeyReserved) {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := types.ParseIdentity(r)
		if err != nil {
			return cfg, fmt.Errorf("%w: %q", types.ErrReservedInvalid, r)
		}
		cfg.Reserved = append(cfg.Reserved, id)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# sheetsql configuration. SHEETSQL_<KEY> environment variables override these values.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// loadDataDirFromConfig reads data_dir from an existing config.yaml.
// Returns empty string if the file does not exist or cannot be read.
func loadDataDirFromConfig(configDir string) string {
	data, err := os.ReadFile(filepath.Join(configDir, configFileExt))
	if err != nil {
		return ""
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return cfg.DataDir
}

// rewriteConfigDataDir sets data_dir in an existing config.yaml, keeping
// every other key.
func rewriteConfigDataDir(path, dataDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	values[cfgKeyDataDir] = dataDir

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
