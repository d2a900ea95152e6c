package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/sheetsql", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "sheetsql"), got)
	})
}

func TestDefaultConfigDir_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}

	got, err := DefaultConfigDir()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library", "Application Support", "sheetsql"), got)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string // substring the result must contain
	}{
		{
			name:    "flag wins over env",
			flag:    "/explicit/config",
			envVal:  "/env/config",
			wantSub: "/explicit/config",
		},
		{
			name:    "env wins when flag empty",
			flag:    "",
			envVal:  "/env/config",
			wantSub: "/env/config",
		},
		{
			name:    "platform default when both empty",
			flag:    "",
			envVal:  "",
			wantSub: "sheetsql",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	cwdDefault := filepath.Join(cwd, DefaultDataDirName)

	tests := []struct {
		name          string
		flag          string
		configYAMLVal string
		envVal        string
		want          string
		wantContains  string // use instead of want for partial match
	}{
		{
			name:          "flag wins over all",
			flag:          "/flag/data",
			configYAMLVal: "/config/data",
			envVal:        "/env/data",
			want:          "/flag/data",
		},
		{
			name:          "config.yaml wins over env",
			flag:          "",
			configYAMLVal: "/config/data",
			envVal:        "/env/data",
			want:          "/config/data",
		},
		{
			name:          "env wins when flag and config empty",
			flag:          "",
			configYAMLVal: "",
			envVal:        "/env/data",
			want:          "/env/data",
		},
		{
			name:          "CWD default when all empty",
			flag:          "",
			configYAMLVal: "",
			envVal:        "",
			want:          cwdDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configYAMLVal)
			require.NoError(t, err)
			if tt.wantContains != "" {
				assert.Contains(t, got, tt.wantContains)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolveConfigDir_AbsolutePath(t *testing.T) {
	t.Run("relative flag becomes absolute", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		got, err := ResolveConfigDir("relative/path")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})

	t.Run("relative env becomes absolute", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "relative/env")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})
}

func TestResolveDataDir_AbsolutePath(t *testing.T) {
	t.Run("relative flag becomes absolute", func(t *testing.T) {
		t.Setenv(EnvDataDir, "")
		got, err := ResolveDataDir("relative/path", "")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})

	t.Run("relative config value becomes absolute", func(t *testing.T) {
		t.Setenv(EnvDataDir, "")
		got, err := ResolveDataDir("", "relative/config")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})
}

func TestStorePath(t *testing.T) {
	id := types.Identity("921c838c-541d-4361-8c96-70cb23abd9f5")
	got := StorePath("/data", id)
	assert.Equal(t, filepath.Join("/data", "921c838c-541d-4361-8c96-70cb23abd9f5.sqlite"), got)
}

func TestIdentityFromFileName(t *testing.T) {
	id := types.NewIdentity()

	tests := []struct {
		name   string
		file   string
		want   types.Identity
		wantOK bool
	}{
		{"store file", id.FileName(), id, true},
		{"reserved store file", "921c838c-541d-4361-8c96-70cb23abd9f5.sqlite", "921c838c-541d-4361-8c96-70cb23abd9f5", true},
		{"build file", ".build-" + string(id) + "-123.sqlite.tmp", "", false},
		{"build file with store suffix", ".build-" + id.FileName(), "", false},
		{"raw upload", string(id) + ".csv", "", false},
		{"not an identity", "notes.sqlite", "", false},
		{"upper case identity", strings.ToUpper(string(id)) + ".sqlite", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IdentityFromFileName(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPattern(t *testing.T) {
	dir := t.TempDir()
	id := types.NewIdentity()

	f, err := os.CreateTemp(dir, BuildPattern(id))
	require.NoError(t, err)
	defer f.Close()

	name := filepath.Base(f.Name())
	assert.True(t, strings.HasPrefix(name, ".build-"+string(id)))
	_, ok := IdentityFromFileName(name)
	assert.False(t, ok, "build files must not look like stores")
}

func TestOwnerFromFileName(t *testing.T) {
	id := types.NewIdentity()

	tests := []struct {
		name   string
		file   string
		wantOK bool
	}{
		{"store file", id.FileName(), true},
		{"rollback journal", id.FileName() + "-journal", true},
		{"wal file", id.FileName() + "-wal", true},
		{"shared memory file", id.FileName() + "-shm", true},
		{"build file", ".build-" + string(id) + "-123.sqlite.tmp", true},
		{"build journal", ".build-" + string(id) + "-123.sqlite.tmp-journal", true},
		{"truncated build file", ".build-" + string(id), false},
		{"build file without identity", ".build-notes.sqlite.tmp", false},
		{"raw upload", string(id) + ".csv", false},
		{"foreign file", "notes.txt", false},
		{"foreign journal", "notes.sqlite-journal", false},
		{"upper case identity", strings.ToUpper(string(id)) + ".sqlite-journal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OwnerFromFileName(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, id, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestOwnerFromFileNameBuildPattern(t *testing.T) {
	id := types.NewIdentity()
	f, err := os.CreateTemp(t.TempDir(), BuildPattern(id))
	require.NoError(t, err)
	defer f.Close()

	got, ok := OwnerFromFileName(filepath.Base(f.Name()))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
