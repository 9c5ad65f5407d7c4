package page_test

import (
	"testing"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/aceofaces/aoa-server/internal/page/pagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFaction(t *testing.T) {
	f, err := page.ParseFaction(" German ")
	require.NoError(t, err)
	assert.Equal(t, page.FactionGerman, f)
	assert.Equal(t, page.FactionAllies, f.Opposing())
	assert.Equal(t, page.FactionGerman, page.FactionAllies.Opposing())

	_, err = page.ParseFaction("axis")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidFaction))
}

func TestLoadPage(t *testing.T) {
	lib := pagetest.Default()

	p, err := lib.LoadPage(page.FactionAllies, pagetest.PageAlliesFire)
	require.NoError(t, err)
	assert.Equal(t, page.FactionAllies, p.Faction)
	assert.Equal(t, pagetest.PageAlliesFire, p.Number)
	assert.Equal(t, page.DistanceClose, p.Distance)
	assert.Equal(t, page.FireOut, p.Fire)
	require.Len(t, p.Moves, page.MoveCount)

	for i, m := range p.Moves {
		assert.Equal(t, i, m.Index)
		assert.NotEmpty(t, m.Name)
		assert.True(t, m.Direction.Valid())
	}
	assert.Equal(t, pagetest.MidBase+3, p.Moves[3].NextPage)
	assert.Equal(t, page.SentinelPage, p.Moves[pagetest.SentinelMove].NextPage)

	german, err := lib.LoadPage(page.FactionGerman, pagetest.PageAlliesFire)
	require.NoError(t, err)
	assert.Equal(t, page.FireIn, german.Fire)
}

func TestLoadPageNotFound(t *testing.T) {
	lib := pagetest.Default()

	_, err := lib.LoadPage(page.FactionAllies, 9999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePageNotFound))

	_, err = lib.LoadPage(page.Faction("axis"), page.DefaultStartPage)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidFaction))
}

func TestFindResult(t *testing.T) {
	lib := pagetest.Default()

	next, err := lib.FindResult(page.FactionAllies, pagetest.MidBase+7, 1)
	require.NoError(t, err)
	assert.Equal(t, pagetest.PageMutual, next)

	_, err = lib.FindResult(page.FactionAllies, pagetest.MidBase, page.MoveCount)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidMove))

	_, err = lib.FindResult(page.FactionAllies, 9999, 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePageNotFound))
}

func TestFindResultUnavailableMove(t *testing.T) {
	row := pagetest.Row(10, page.DistanceLong, false, page.FireNone)
	row.Moves[4] = 0
	lib := pagetest.NewBuilder().SetBoth(row).Library()

	_, err := lib.FindResult(page.FactionGerman, 10, 4)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidMove))

	p, err := lib.LoadPage(page.FactionGerman, 10)
	require.NoError(t, err)
	assert.False(t, p.Moves[4].Available())
	assert.True(t, p.Moves[5].Available())
}

func TestFindResultThenLoadPageRoundTrip(t *testing.T) {
	lib := pagetest.Default()

	for _, faction := range page.Factions {
		for mid := pagetest.MidBase; mid < pagetest.MidBase+page.MoveCount; mid++ {
			for move := 0; move < page.MoveCount; move++ {
				result, err := lib.FindResult(faction, mid, move)
				require.NoError(t, err)

				p, err := lib.LoadPage(faction, result)
				require.NoError(t, err)
				assert.Equal(t, result, p.Number)
			}
		}
	}
}

func TestPageMove(t *testing.T) {
	p, err := pagetest.Default().LoadPage(page.FactionAllies, page.DefaultStartPage)
	require.NoError(t, err)

	m, err := p.Move(13)
	require.NoError(t, err)
	assert.True(t, m.Descent)

	_, err = p.Move(-1)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidMoveIndex))
	_, err = p.Move(page.MoveCount)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidMoveIndex))
}

func TestNewBookRejectsBadRows(t *testing.T) {
	good := pagetest.Row(1, page.DistanceLong, false, page.FireNone)

	_, err := page.NewBook(page.FactionAllies, []page.Row{good, good})
	assert.ErrorContains(t, err, "duplicate page 1")

	bad := good
	bad.Fire = "sideways"
	_, err = page.NewBook(page.FactionAllies, []page.Row{bad})
	assert.ErrorContains(t, err, "invalid fire type")

	_, err = page.NewBook(page.Faction("axis"), nil)
	assert.Error(t, err)
}

func TestNewLibraryRequiresBothFactions(t *testing.T) {
	book, err := page.NewBook(page.FactionAllies, nil)
	require.NoError(t, err)

	_, err = page.NewLibrary(page.DefaultCatalog(), book)
	assert.ErrorContains(t, err, "missing table for faction german")

	_, err = page.NewLibrary(page.DefaultCatalog(), book, book)
	assert.ErrorContains(t, err, "duplicate table")
}
