// Package report persists validation reports and renders them for humans.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/storage/archive"
	"go.uber.org/zap"
)

const rootPrefix = "reports"

// SaveRecorder is notified of every archive write
type SaveRecorder interface {
	RecordReportSaved(ok bool)
}

// Store keeps reports as indented JSON documents in an archive, one per
// run, under reports/<strategy>/<timestamp>-<id>.json.
type Store struct {
	storage  archive.Storage
	logger   *zap.Logger
	recorder SaveRecorder
}

// NewStore creates a report store. recorder may be nil.
func NewStore(storage archive.Storage, logger *zap.Logger, recorder SaveRecorder) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: storage, logger: logger, recorder: recorder}
}

// Save writes r and returns its key
func (s *Store) Save(ctx context.Context, r *backtest.Report) (string, error) {
	key := newKey(r)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding report: %w", err))
	}

	err = s.storage.Write(ctx, key, data)
	if s.recorder != nil {
		s.recorder.RecordReportSaved(err == nil)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("report saved",
		zap.String("key", key),
		zap.String("strategy", r.StrategyName),
		zap.Int("bytes", len(data)),
	)
	return key, nil
}

// Load reads the report stored under key
func (s *Store) Load(ctx context.Context, key string) (*backtest.Report, error) {
	if !validKey(key) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("not a report key: %q", key))
	}

	data, err := s.storage.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	var r backtest.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding %s: %w", key, err))
	}
	return &r, nil
}

// List returns report keys, oldest first. An empty strategy lists all.
func (s *Store) List(ctx context.Context, strategy string) ([]string, error) {
	prefix := rootPrefix + "/"
	if strategy != "" {
		if !validSegment(strategy) {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid strategy name %q", strategy))
		}
		prefix += strategy + "/"
	}

	paths, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if validKey(p) {
			keys = append(keys, p)
		}
	}
	// file names start with a UTC timestamp, so lexical order is per-strategy
	// chronological order
	return keys, nil
}

// newKey builds a collision-free key that sorts by generation time
func newKey(r *backtest.Report) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := r.StrategyName
	if !validSegment(name) {
		name = "unnamed"
	}
	return path.Join(rootPrefix, name, fmt.Sprintf("%s-%s.json", r.GeneratedAt.UTC().Format("20060102T150405Z"), id))
}

func validKey(key string) bool {
	parts := strings.Split(key, "/")
	return len(parts) == 3 &&
		parts[0] == rootPrefix &&
		validSegment(parts[1]) &&
		validSegment(parts[2]) &&
		strings.HasSuffix(parts[2], ".json")
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}
