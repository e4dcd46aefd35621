package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"liquidityAdapter/internal/model"
)

// JsonlStore appends position records to a JSONL file. The last line for an
// ID is its current state.
type JsonlStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewJsonlStore(path string, logger *zap.Logger) *JsonlStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JsonlStore{path: path, logger: logger}
}

// SavePosition appends record as one JSON line.
func (s *JsonlStore) SavePosition(_ context.Context, record PositionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("position id required")
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal position record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write position record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	s.logger.Info("position saved",
		zap.String("id", record.ID),
		zap.String("pool", record.Pool.Hex()),
		zap.Bool("closed", record.Closed()),
	)
	return nil
}

// LoadPosition scans the file for the latest record with id.
func (s *JsonlStore) LoadPosition(_ context.Context, id string) (PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PositionRecord{}, fmt.Errorf("position %s: %w", id, model.ErrPositionNotFound)
		}
		return PositionRecord{}, fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	var (
		found  PositionRecord
		ok     bool
		lineNo int
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record PositionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return PositionRecord{}, fmt.Errorf("parse line %d: %w", lineNo, err)
		}
		if record.ID == id {
			found, ok = record, true
		}
	}
	if err := scanner.Err(); err != nil {
		return PositionRecord{}, fmt.Errorf("read output file: %w", err)
	}
	if !ok {
		return PositionRecord{}, fmt.Errorf("position %s: %w", id, model.ErrPositionNotFound)
	}
	return found, nil
}
