package types

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the storage and retention parameters shared by the store, the
// sweeper, and the HTTP boundary.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Retention is the age after which a store is eligible for deletion.
	Retention time.Duration `json:"retention" yaml:"retention"`
	// SweepInterval is the pause between two retention scans.
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
	// Reserved identities are never deleted.
	Reserved []Identity `json:"reserved" yaml:"reserved"`

	// QueryTimeout bounds a single statement; zero disables the bound.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
	// BusyTimeout is how long a connection waits on a locked store.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Defaults.
const (
	DefaultRetention      = 4 * time.Hour
	DefaultSweepInterval  = time.Hour
	DefaultBusyTimeout    = 5 * time.Second
	DefaultListenAddr     = ":3001"
	DefaultMaxUploadBytes = 64 << 20
)

// DefaultConfig returns a Config for dataDir with every other field at its default.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:        dataDir,
		Retention:      DefaultRetention,
		SweepInterval:  DefaultSweepInterval,
		Reserved:       []Identity{DefaultReservedIdentity},
		BusyTimeout:    DefaultBusyTimeout,
		ListenAddr:     DefaultListenAddr,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Config validation errors.
var (
	ErrDataDirEmpty         = errors.New("data directory must not be empty")
	ErrRetentionInvalid     = errors.New("retention must be positive")
	ErrSweepIntervalInvalid = errors.New("sweep interval must be positive")
	ErrTimeoutInvalid       = errors.New("timeouts must not be negative")
	ErrMaxUploadInvalid     = errors.New("max upload bytes must be positive")
	ErrReservedInvalid      = errors.New("reserved identity is not a UUID")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.Retention <= 0 {
		return ErrRetentionInvalid
	}
	if c.SweepInterval <= 0 {
		return ErrSweepIntervalInvalid
	}
	if c.QueryTimeout < 0 || c.BusyTimeout < 0 {
		return ErrTimeoutInvalid
	}
	if c.MaxUploadBytes <= 0 {
		return ErrMaxUploadInvalid
	}
	for _, id := range c.Reserved {
		if _, err := ParseIdentity(string(id)); err != nil {
			return fmt.Errorf("%w: %q", ErrReservedInvalid, id)
		}
	}
	return nil
}

// IsReserved reports whether id is one of the reserved identities.
func (c Config) IsReserved(id Identity) bool {
	for _, r := range c.Reserved {
		if r == id {
			return true
		}
	}
	return false
}
