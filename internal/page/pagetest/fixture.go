// Package pagetest provides small in-memory page tables for tests.
package pagetest

import (
	"fmt"

	"github.com/aceofaces/aoa-server/internal/page"
)

// Pages of the default fixture. Every normal page sends move i to the
// intermediate page MidBase+i, except move SentinelMove which leads straight
// to the sentinel. On an intermediate row the result depends only on the
// move index of the side being resolved.
const (
	MidBase      = 100
	SentinelMove = 25

	PageAlliesFire = 1 // close; allies fire out, german fire in
	PageMutual     = 2 // long; mutual fire
	PageAlliesTail = 3 // allies tailing german
	PageGermanTail = 4 // german tailing allies
	PageQuiet      = 5 // long; nobody fires
	PageBothTail   = 6 // both tail flags set
	PageCloseFight = 7 // close; mutual fire
)

// Result pages reached by each move index from any intermediate row.
var results = map[int]int{
	0:            PageAlliesFire,
	1:            PageMutual,
	2:            page.SentinelPage,
	3:            PageAlliesTail,
	4:            PageGermanTail,
	5:            PageBothTail,
	6:            PageCloseFight,
	SentinelMove: PageQuiet,
}

// Builder assembles faction tables row by row.
type Builder struct {
	rows map[page.Faction]map[int]page.Row
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{rows: map[page.Faction]map[int]page.Row{
		page.FactionAllies: {},
		page.FactionGerman: {},
	}}
}

// Set stores a row for one faction, replacing any previous row.
func (b *Builder) Set(faction page.Faction, row page.Row) *Builder {
	b.rows[faction][row.Page] = row
	return b
}

// SetBoth stores the same row for both factions.
func (b *Builder) SetBoth(row page.Row) *Builder {
	return b.Set(page.FactionAllies, row).Set(page.FactionGerman, row)
}

// Library builds the provider, panicking on malformed rows.
func (b *Builder) Library() *page.Library {
	books := make([]*page.Book, 0, len(page.Factions))
	for _, faction := range page.Factions {
		rows := make([]page.Row, 0, len(b.rows[faction]))
		for _, row := range b.rows[faction] {
			rows = append(rows, row)
		}
		book, err := page.NewBook(faction, rows)
		if err != nil {
			panic(fmt.Sprintf("pagetest: %v", err))
		}
		books = append(books, book)
	}
	lib, err := page.NewLibrary(page.DefaultCatalog(), books...)
	if err != nil {
		panic(fmt.Sprintf("pagetest: %v", err))
	}
	return lib
}

// NormalMoves returns transitions sending move i to MidBase+i and
// SentinelMove to the sentinel page.
func NormalMoves() [page.MoveCount]int {
	var moves [page.MoveCount]int
	for i := range moves {
		moves[i] = MidBase + i
	}
	moves[SentinelMove] = page.SentinelPage
	return moves
}

// ResultMoves returns the transitions of an intermediate row.
func ResultMoves() [page.MoveCount]int {
	var moves [page.MoveCount]int
	for i := range moves {
		if next, ok := results[i]; ok {
			moves[i] = next
		} else {
			moves[i] = page.DefaultStartPage
		}
	}
	return moves
}

// Row returns a normal page row.
func Row(number int, distance page.Distance, tail bool, fire page.FireType) page.Row {
	return page.Row{Page: number, Distance: distance, Tail: tail, Fire: fire, Moves: NormalMoves()}
}

// DefaultBuilder returns a builder preloaded with the default fixture.
func DefaultBuilder() *Builder {
	b := NewBuilder()

	b.SetBoth(Row(page.DefaultStartPage, page.DistanceMedium, false, page.FireNone))
	b.SetBoth(Row(PageMutual, page.DistanceLong, false, page.FireMutual))
	b.SetBoth(Row(PageQuiet, page.DistanceLong, false, page.FireNone))
	b.SetBoth(Row(PageBothTail, page.DistanceMedium, true, page.FireNone))
	b.SetBoth(Row(PageCloseFight, page.DistanceClose, false, page.FireMutual))
	b.SetBoth(Row(page.SentinelPage, page.DistanceLong, false, page.FireNone))

	b.Set(page.FactionAllies, Row(PageAlliesFire, page.DistanceClose, false, page.FireOut))
	b.Set(page.FactionGerman, Row(PageAlliesFire, page.DistanceClose, false, page.FireIn))

	b.Set(page.FactionAllies, Row(PageAlliesTail, page.DistanceMedium, true, page.FireNone))
	b.Set(page.FactionGerman, Row(PageAlliesTail, page.DistanceMedium, false, page.FireNone))

	b.Set(page.FactionAllies, Row(PageGermanTail, page.DistanceMedium, false, page.FireNone))
	b.Set(page.FactionGerman, Row(PageGermanTail, page.DistanceMedium, true, page.FireNone))

	for i := 0; i < page.MoveCount; i++ {
		b.SetBoth(page.Row{
			Page:     MidBase + i,
			Distance: page.DistanceMedium,
			Fire:     page.FireNone,
			Moves:    ResultMoves(),
		})
	}
	return b
}

// Default returns the default fixture library.
func Default() *page.Library {
	return DefaultBuilder().Library()
}
