package server

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"moodflix-capture/internal/infrastructure/transport"
)

// LogStore persists inference log records as CSV rows, one file for the
// lifetime of the server.
type LogStore struct {
	mu   sync.Mutex
	path string
}

// NewLogStore creates a store writing to path, creating parent directories
// as needed.
func NewLogStore(path string) (*LogStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	return &LogStore{path: path}, nil
}

// Append writes one record to the store.
func (s *LogStore) Append(rec transport.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		rec.ClientSentAt,
		rec.Env.City,
		strconv.FormatFloat(rec.Env.Lat, 'f', -1, 64),
		strconv.FormatFloat(rec.Env.Lon, 'f', -1, 64),
		rec.Env.TodayStatus,
		rec.Env.TomorrowStatus,
		rec.Env.Weekday,
		rec.Env.WeatherDesc,
		rec.Env.Temperature,
		rec.Mood,
		rec.Tone,
		rec.MovieTitle,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Tail returns up to limit most recent entries, oldest first.
func (s *LogStore) Tail(limit int) ([]transport.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []transport.LogEntry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	entries := make([]transport.LogEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) < 12 {
			continue
		}
		entries = append(entries, transport.LogEntry{
			ClientSentAt:   row[0],
			City:           row[1],
			TodayStatus:    row[4],
			TomorrowStatus: row[5],
			Weekday:        row[6],
			WeatherDesc:    row[7],
			Temperature:    row[8],
			Mood:           row[9],
			Tone:           row[10],
			MovieTitle:     row[11],
		})
	}
	return entries, nil
}
