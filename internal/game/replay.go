package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aceofaces/aoa-server/internal/page"
)

// TurnRecord captures one resolution of a game.
type TurnRecord struct {
	Turn      int                       `json:"turn"`
	Outcome   Outcome                   `json:"outcome"`
	Moves     map[page.Faction]int      `json:"moves,omitempty"`
	MidPages  map[page.Faction]int      `json:"mid_pages,omitempty"`
	Decisions map[page.Faction]Decision `json:"decisions,omitempty"`
	Page      int                       `json:"page"`
	Damage    map[page.Faction]float64  `json:"damage,omitempty"`
	Health    map[page.Faction]float64  `json:"health,omitempty"`
	Message   string                    `json:"message"`
	At        time.Time                 `json:"at"`
}

// History is the sequence of resolutions of one game, with a cursor for
// stepping through it.
type History struct {
	GameID       string
	Records      []TurnRecord
	CurrentIndex int
	mu           sync.RWMutex
}

// NewHistory creates an empty history.
func NewHistory(gameID string) *History {
	return &History{
		GameID:  gameID,
		Records: make([]TurnRecord, 0),
	}
}

// Record appends a resolution.
func (h *History) Record(rec TurnRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Records = append(h.Records, rec)
}

// Start rewinds the cursor.
func (h *History) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.CurrentIndex = 0
}

// Next returns the record under the cursor and advances it.
func (h *History) Next() (TurnRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.CurrentIndex < len(h.Records) {
		rec := h.Records[h.CurrentIndex]
		h.CurrentIndex++
		return rec, true
	}
	return TurnRecord{}, false
}

// Previous moves the cursor back and returns the record there.
func (h *History) Previous() (TurnRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.CurrentIndex > 0 {
		h.CurrentIndex--
		return h.Records[h.CurrentIndex], true
	}
	return TurnRecord{}, false
}

// Skip moves the cursor by count, clamped to the recorded range.
func (h *History) Skip(count int) (TurnRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.Records) == 0 {
		return TurnRecord{}, false
	}

	idx := h.CurrentIndex + count
	if idx >= len(h.Records) {
		idx = len(h.Records) - 1
	}
	if idx < 0 {
		idx = 0
	}
	h.CurrentIndex = idx
	return h.Records[idx], true
}

// Size returns the number of records.
func (h *History) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.Records)
}

// At returns the record at index.
func (h *History) At(index int) (TurnRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if index >= 0 && index < len(h.Records) {
		return h.Records[index], true
	}
	return TurnRecord{}, false
}

// All returns a copy of every record.
func (h *History) All() []TurnRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]TurnRecord, len(h.Records))
	copy(out, h.Records)
	return out
}

// replayFileName returns the file a game's history is saved under. The
// game ID must name a single file inside directory.
func replayFileName(directory, gameID string) (string, error) {
	name := gameID + ".replay"
	if gameID == "" || strings.ContainsAny(gameID, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("game id %q cannot be used as a replay file name", gameID)
	}
	return filepath.Join(directory, name), nil
}

type historyMetadata struct {
	GameID      string
	Timestamp   time.Time
	Version     int
	RecordCount int
}

// SaveToFile writes the history as a gzipped gob stream and returns the
// file path.
func (h *History) SaveToFile(directory string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	filename, err := replayFileName(directory, h.GameID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := historyMetadata{
		GameID:      h.GameID,
		Timestamp:   time.Now(),
		Version:     1,
		RecordCount: len(h.Records),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range h.Records {
		if err := encoder.Encode(&h.Records[i]); err != nil {
			return "", fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return filename, nil
}

// LoadHistoryFromFile reads a history written by SaveToFile.
func LoadHistoryFromFile(directory, gameID string) (*History, error) {
	filename, err := replayFileName(directory, gameID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata historyMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != 1 {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	h := NewHistory(metadata.GameID)
	for i := 0; i < metadata.RecordCount; i++ {
		var rec TurnRecord
		if err := decoder.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}
		h.Records = append(h.Records, rec)
	}
	return h, nil
}
