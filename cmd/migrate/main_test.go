package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsAcceptsConfigFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	opts, err := parseArgs([]string{"--database-url=postgres://localhost/two_truths", "--down", "1"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/two_truths", opts.databaseURL)
	assert.Equal(t, 1, opts.down)
}

func TestParseArgsFallsBackToEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/two_truths")

	opts, err := parseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/two_truths", opts.databaseURL)
	assert.Zero(t, opts.down)
}

func TestParseArgsRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := parseArgs(nil)
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = parseArgs([]string{"--database-url=postgres://x", "--down=-1"})
	assert.Error(t, err)
}
