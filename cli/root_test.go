package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquilairreale/mongohoneypot/config"
)

func TestRootCommandAppliesDefaults(t *testing.T) {
	var captured *config.Config
	cmd := RootCommand(zap.NewNop(), func(cfg *config.Config) error {
		captured = cfg
		return nil
	})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "localhost:27017", captured.Host.Addr())
	assert.Equal(t, "localhost:27016", captured.MongoHost.Addr())
}

func TestRootCommandParsesOverrides(t *testing.T) {
	var captured *config.Config
	cmd := RootCommand(zap.NewNop(), func(cfg *config.Config) error {
		captured = cfg
		return nil
	})
	cmd.SetArgs([]string{"-H", ":28000", "-m", "10.0.0.9:27000", "-v", "--debug"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "localhost:28000", captured.Host.Addr())
	assert.Equal(t, "10.0.0.9:27000", captured.MongoHost.Addr())
	assert.True(t, captured.Verbose)
	assert.True(t, captured.Debug)
}
