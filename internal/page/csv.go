package page

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TableFileName returns the CSV file name holding a faction table.
func TableFileName(faction Faction) string {
	return fmt.Sprintf("aoa_%s.csv", faction)
}

// ReadCSV parses a faction table. The header must name the distance, tail
// and fire columns and m_0..m_25. An optional page column sets the page
// number; otherwise the n-th data row is page n.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"distance", "tail", "fire"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	moveCols := make([]int, MoveCount)
	for i := range moveCols {
		idx, ok := cols[fmt.Sprintf("m_%d", i)]
		if !ok {
			return nil, fmt.Errorf("missing column m_%d", i)
		}
		moveCols[i] = idx
	}
	pageCol, hasPageCol := cols["page"]

	var rows []Row
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}

		row := Row{
			Page:     line,
			Distance: Distance(strings.ToLower(strings.TrimSpace(record[cols["distance"]]))),
			Fire:     FireType(strings.ToLower(strings.TrimSpace(record[cols["fire"]]))),
		}
		if hasPageCol {
			if row.Page, err = parseTransition(record[pageCol]); err != nil || row.Page == 0 {
				return nil, fmt.Errorf("line %d: invalid page number %q", line+1, record[pageCol])
			}
		}
		if row.Tail, err = parseTail(record[cols["tail"]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		for i, col := range moveCols {
			if row.Moves[i], err = parseTransition(record[col]); err != nil {
				return nil, fmt.Errorf("line %d, m_%d: %w", line+1, i, err)
			}
		}
		if err := row.validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTail(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid tail flag %q", v)
	}
	return b, nil
}

// parseTransition accepts integers and the float spelling spreadsheet
// exports use for columns with blanks ("12.0"). Blank and NaN mean
// unavailable.
func parseTransition(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "nan") {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid page number %q", v)
	}
	return int(f), nil
}

// LoadCSVDir reads aoa_<faction>.csv for both factions from dir.
func LoadCSVDir(dir string, catalog Catalog) (*Library, error) {
	books := make([]*Book, 0, len(Factions))
	for _, faction := range Factions {
		rows, err := ReadCSVFile(filepath.Join(dir, TableFileName(faction)))
		if err != nil {
			return nil, err
		}
		book, err := NewBook(faction, rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return NewLibrary(catalog, books...)
}

// ReadCSVFile parses a faction table from a file.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page table: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
