package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := rootCmd()

	serve, _, err := cmd.Find([]string{"serve"})
	assert.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	migrate, _, err := cmd.Find([]string{"migrate"})
	assert.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateCmd_RejectsUnknownDirection(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate", "sideways"})

	err := cmd.Execute()
	assert.Error(t, err)
}
