package page

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the page store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const pagesSchema = `
CREATE TABLE IF NOT EXISTS aoa_pages (
	faction  TEXT    NOT NULL,
	page_num INTEGER NOT NULL,
	distance TEXT    NOT NULL,
	tail     BOOLEAN NOT NULL DEFAULT FALSE,
	fire     TEXT    NOT NULL,
	moves    INTEGER[] NOT NULL,
	PRIMARY KEY (faction, page_num)
)`

// EnsureSchema creates the page table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, pagesSchema); err != nil {
		return fmt.Errorf("create aoa_pages: %w", err)
	}
	return nil
}

// ImportRows replaces a faction's pages in a single transaction and returns
// the number of rows written.
func ImportRows(ctx context.Context, db DB, faction Faction, rows []Row) (int, error) {
	if !faction.Valid() {
		return 0, fmt.Errorf("unknown faction %q", faction)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM aoa_pages WHERE faction = $1`, string(faction)); err != nil {
		return 0, fmt.Errorf("clear %s pages: %w", faction, err)
	}

	for _, row := range rows {
		if err := row.validate(); err != nil {
			return 0, err
		}
		moves := make([]int32, MoveCount)
		for i, next := range row.Moves {
			moves[i] = int32(next)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO aoa_pages (faction, page_num, distance, tail, fire, moves)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			string(faction),
			row.Page,
			string(row.Distance),
			row.Tail,
			string(row.Fire),
			moves,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s page %d: %w", faction, row.Page, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s pages: %w", faction, err)
	}
	return len(rows), nil
}

// LoadPostgres reads both faction tables into an in-memory Library.
func LoadPostgres(ctx context.Context, db DB, catalog Catalog) (*Library, error) {
	rows, err := db.Query(ctx, `
		SELECT faction, page_num, distance, tail, fire, moves
		FROM aoa_pages
		ORDER BY faction, page_num
	`)
	if err != nil {
		return nil, fmt.Errorf("query aoa_pages: %w", err)
	}
	defer rows.Close()

	byFaction := make(map[Faction][]Row, len(Factions))
	for rows.Next() {
		var (
			faction, distance, fire string
			row                     Row
			moves                   []int32
		)
		if err := rows.Scan(&faction, &row.Page, &distance, &row.Tail, &fire, &moves); err != nil {
			return nil, fmt.Errorf("scan aoa_pages: %w", err)
		}
		if len(moves) != MoveCount {
			return nil, fmt.Errorf("%s page %d has %d moves, want %d", faction, row.Page, len(moves), MoveCount)
		}
		row.Distance = Distance(distance)
		row.Fire = FireType(fire)
		for i, next := range moves {
			row.Moves[i] = int(next)
		}
		f := Faction(faction)
		byFaction[f] = append(byFaction[f], row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aoa_pages: %w", err)
	}

	books := make([]*Book, 0, len(Factions))
	for _, faction := range Factions {
		book, err := NewBook(faction, byFaction[faction])
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return NewLibrary(catalog, books...)
}
