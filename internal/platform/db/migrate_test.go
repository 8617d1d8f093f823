package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/coincraft?sslmode=disable",
		migrationURL("postgres://u:p@localhost:5432/coincraft?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/coincraft", migrationURL("postgresql://localhost/coincraft"))
	require.Equal(t, "pgx5://already", migrationURL("pgx5://already"))
}
