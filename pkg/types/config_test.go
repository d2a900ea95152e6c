package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig("/tmp/data")

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty data dir returns ErrDataDirEmpty",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "zero retention returns ErrRetentionInvalid",
			mutate:  func(c *Config) { c.Retention = 0 },
			wantErr: ErrRetentionInvalid,
		},
		{
			name:    "negative interval returns ErrSweepIntervalInvalid",
			mutate:  func(c *Config) { c.SweepInterval = -time.Second },
			wantErr: ErrSweepIntervalInvalid,
		},
		{
			name:    "negative query timeout returns ErrTimeoutInvalid",
			mutate:  func(c *Config) { c.QueryTimeout = -time.Second },
			wantErr: ErrTimeoutInvalid,
		},
		{
			name:    "zero upload limit returns ErrMaxUploadInvalid",
			mutate:  func(c *Config) { c.MaxUploadBytes = 0 },
			wantErr: ErrMaxUploadInvalid,
		},
		{
			name:    "non-uuid reserved entry returns ErrReservedInvalid",
			mutate:  func(c *Config) { c.Reserved = []Identity{"keep-me"} },
			wantErr: ErrReservedInvalid,
		},
		{
			name:    "no reserved identities is valid",
			mutate:  func(c *Config) { c.Reserved = nil },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Reserved = append([]Identity(nil), valid.Reserved...)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigIsReserved(t *testing.T) {
	cfg := DefaultConfig("/tmp/data")
	if !cfg.IsReserved(DefaultReservedIdentity) {
		t.Errorf("default reserved identity should be reserved")
	}
	if cfg.IsReserved(NewIdentity()) {
		t.Errorf("fresh identity should not be reserved")
	}
}
