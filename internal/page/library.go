package page

import (
	"fmt"
	"sort"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
)

// Row is one page of a faction table as stored on disk or in the database.
type Row struct {
	Page     int
	Distance Distance
	Tail     bool
	Fire     FireType
	// Moves holds the transition for each move index; zero means unavailable.
	Moves [MoveCount]int
}

func (r Row) validate() error {
	if r.Page <= 0 {
		return fmt.Errorf("page number %d must be positive", r.Page)
	}
	if !r.Distance.Valid() {
		return fmt.Errorf("page %d: invalid distance %q", r.Page, r.Distance)
	}
	if !r.Fire.Valid() {
		return fmt.Errorf("page %d: invalid fire type %q", r.Page, r.Fire)
	}
	for i, next := range r.Moves {
		if next < 0 {
			return fmt.Errorf("page %d: move %d has negative transition %d", r.Page, i, next)
		}
	}
	return nil
}

// Book is the page table of a single faction.
type Book struct {
	faction Faction
	rows    map[int]Row
}

// NewBook builds a faction table, rejecting duplicate or malformed rows.
func NewBook(faction Faction, rows []Row) (*Book, error) {
	if !faction.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidFaction, "unknown faction %q", faction)
	}

	b := &Book{faction: faction, rows: make(map[int]Row, len(rows))}
	for _, row := range rows {
		if err := row.validate(); err != nil {
			return nil, fmt.Errorf("%s table: %w", faction, err)
		}
		if _, exists := b.rows[row.Page]; exists {
			return nil, fmt.Errorf("%s table: duplicate page %d", faction, row.Page)
		}
		b.rows[row.Page] = row
	}
	return b, nil
}

// Faction returns the faction the table belongs to.
func (b *Book) Faction() Faction {
	return b.faction
}

// Len returns the number of pages in the table.
func (b *Book) Len() int {
	return len(b.rows)
}

// Rows returns the rows ordered by page number.
func (b *Book) Rows() []Row {
	rows := make([]Row, 0, len(b.rows))
	for _, row := range b.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Page < rows[j].Page })
	return rows
}

func (b *Book) row(number int) (Row, error) {
	row, ok := b.rows[number]
	if !ok {
		return Row{}, apperrors.New(apperrors.CodePageNotFound,
			"page %d not found in %s table", number, b.faction)
	}
	return row, nil
}

// Library is an immutable in-memory Provider holding both faction tables.
type Library struct {
	catalog Catalog
	books   map[Faction]*Book
}

var _ Provider = (*Library)(nil)

// NewLibrary assembles a library. Both factions must be present.
func NewLibrary(catalog Catalog, books ...*Book) (*Library, error) {
	if len(catalog) != MoveCount {
		return nil, fmt.Errorf("move catalog has %d moves, want %d", len(catalog), MoveCount)
	}

	l := &Library{catalog: catalog, books: make(map[Faction]*Book, len(books))}
	for _, b := range books {
		if _, exists := l.books[b.faction]; exists {
			return nil, fmt.Errorf("duplicate table for faction %s", b.faction)
		}
		l.books[b.faction] = b
	}
	for _, f := range Factions {
		if _, ok := l.books[f]; !ok {
			return nil, fmt.Errorf("missing table for faction %s", f)
		}
	}
	return l, nil
}

// Book returns the table of a faction.
func (l *Library) Book(faction Faction) (*Book, error) {
	b, ok := l.books[faction]
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidFaction, "unknown faction %q", faction)
	}
	return b, nil
}

// LoadPage implements Provider.
func (l *Library) LoadPage(faction Faction, number int) (Page, error) {
	b, err := l.Book(faction)
	if err != nil {
		return Page{}, err
	}
	row, err := b.row(number)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Faction:  faction,
		Number:   row.Page,
		Distance: row.Distance,
		Tail:     row.Tail,
		Fire:     row.Fire,
		Moves:    l.catalog.movements(row.Moves),
	}, nil
}

// FindResult implements Provider.
func (l *Library) FindResult(faction Faction, midPage, moveIndex int) (int, error) {
	b, err := l.Book(faction)
	if err != nil {
		return 0, err
	}
	row, err := b.row(midPage)
	if err != nil {
		return 0, err
	}
	if moveIndex < 0 || moveIndex >= MoveCount {
		return 0, apperrors.New(apperrors.CodeInvalidMove,
			"move index %d out of range on %s page %d", moveIndex, faction, midPage)
	}
	next := row.Moves[moveIndex]
	if next == 0 {
		return 0, apperrors.New(apperrors.CodeInvalidMove,
			"move %d has no transition on %s page %d", moveIndex, faction, midPage)
	}
	return next, nil
}
