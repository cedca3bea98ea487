package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()

	for _, name := range []string{
		"serve", "ingest", "watch", "query", "search",
		"documents", "sessions", "status", "config", "version",
	} {
		sub, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, "subcommand %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	rootCmd := NewRootCmd()

	for _, name := range []string{"config", "owner", "no-color", "debug", "offline"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag --%s should exist", name)
	}

	owner := rootCmd.PersistentFlags().Lookup("owner")
	require.NotNil(t, owner)
	assert.Equal(t, "default", owner.DefValue)
}

func TestRootCmd_DocumentsDeleteRequiresArg(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"documents", "delete"})

	err := rootCmd.Execute()

	require.Error(t, err)
}
