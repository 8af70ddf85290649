package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custos.yml")

	out, err := runCLI(t, nil, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = runCLI(t, nil, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, nil, "config", "init", "--force", path)
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custos.yml")
	require.NoError(t, os.WriteFile(path, []byte("store: memory\ngroup_access: members\n"), 0o644))

	out, err := runCLI(t, nil, "config", "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "store: memory")
	assert.Contains(t, out, "group_access: members")
	assert.Contains(t, out, "grpc_addr:")
}
