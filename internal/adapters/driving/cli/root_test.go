package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/planwatch/internal/logger"
)

func TestRootCmd_Commands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"sync", "enrich", "list", "show", "history", "agents", "serve", "settings", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func withBootstrap(t *testing.T, fn BootstrapFunc) {
	t.Helper()
	old := bootstrap
	SetBootstrap(fn)
	t.Cleanup(func() {
		bootstrap = old
		opts = Options{}
		logger.SetVerbose(false)
	})
}

func TestRootCmd_BootstrapReceivesFlags(t *testing.T) {
	withServices(t, nil, nil, nil)
	dir := t.TempDir()

	var got Options
	closed := false
	withBootstrap(t, func(o Options) (*Services, error) {
		got = o
		return &Services{
			Settings: newMockSettings(),
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	})

	out, err := execute(t, "--data-dir", dir, "-v", "settings", "get", "portal.base_url")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.test\n", out)
	assert.Equal(t, Options{DataDir: dir, Verbose: true}, got)
	assert.True(t, logger.IsVerbose())
	assert.True(t, closed, "services are closed after the command")
}

func TestRootCmd_BootstrapError(t *testing.T) {
	withServices(t, nil, nil, nil)
	withBootstrap(t, func(Options) (*Services, error) {
		return nil, errors.New("open database: locked")
	})

	_, err := execute(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database: locked")
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	called := false
	withBootstrap(t, func(Options) (*Services, error) {
		called = true
		return &Services{}, nil
	})

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "planwatch version")
	assert.False(t, called)
}

func TestSetVersion(t *testing.T) {
	old := version
	t.Cleanup(func() { version = old })

	SetVersion("1.2.3")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "planwatch version 1.2.3")
}
