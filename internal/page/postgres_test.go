package page

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresImportAndLoad(t *testing.T) {
	dsn := os.Getenv("AOA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AOA_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, EnsureSchema(ctx, pool))

	for _, faction := range Factions {
		rows, err := ReadCSVFile("testdata/" + TableFileName(faction))
		require.NoError(t, err)

		n, err := ImportRows(ctx, pool, faction, rows)
		require.NoError(t, err)
		assert.Equal(t, len(rows), n)
	}

	lib, err := LoadPostgres(ctx, pool, DefaultCatalog())
	require.NoError(t, err)

	p, err := lib.LoadPage(FactionGerman, 1)
	require.NoError(t, err)
	assert.Equal(t, FireIn, p.Fire)
	assert.Equal(t, 100, p.Moves[0].NextPage)
}
