package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/shared"
)

func TestParseActor(t *testing.T) {
	id := uuid.New()

	actor, err := parseActor(id.String(), "parent")
	require.NoError(t, err)
	require.Equal(t, shared.Actor{ID: id, Role: shared.RoleParent}, actor)

	_, err = parseActor("not-a-uuid", "parent")
	require.Error(t, err)

	_, err = parseActor(id.String(), "admin")
	require.ErrorContains(t, err, "unknown role")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"seed"},
		{"reconcile"},
		{"session", "issue"},
		{"jobs", "sweep"},
		{"jobs", "payout"},
		{"jobs", "stats"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
}
