package model

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrChecksum is returned when a stored payload does not match its checksum
var ErrChecksum = errors.New("checksum mismatch")

// Metadata describes a stored factorization
type Metadata struct {
	Algorithm          string    `json:"algorithm"`
	TrainedAt          time.Time `json:"trained_at"`
	SavedAt            time.Time `json:"saved_at"`
	Rank               int       `json:"rank"`
	Features           int       `json:"features"`
	UserCount          int       `json:"user_count"`
	ExplainedVariance  float64   `json:"explained_variance"`
	Checksum           string    `json:"checksum"`
	SizeBytes          int64     `json:"size_bytes"`
	TrainingDurationMS int64     `json:"training_duration_ms"`
}

// storedFile is the on-disk format
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store persists a single factorization at a fixed path
type Store struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates a store for the model file at path
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Path returns the model file path
func (s *Store) Path() string {
	return s.path
}

// Save writes f to the store, replacing any previous model. The file is
// written to a temporary name and renamed so readers never see a partial file.
//
//nolint:gocritic // meta is filled in and returned
func (s *Store) Save(ctx context.Context, f *Factorization, meta Metadata) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to save invalid model: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()
	meta.Rank = f.Rank
	meta.Features = f.Features
	if meta.Algorithm == "" {
		meta.Algorithm = f.Params.Algorithm
	}
	if meta.ExplainedVariance == 0 {
		meta.ExplainedVariance = f.TotalExplainedVariance()
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return nil, fmt.Errorf("replace model file: %w", err)
	}

	return &meta, nil
}

// Load reads the model. A missing file yields an error matching os.ErrNotExist.
func (s *Store) Load(ctx context.Context) (*Factorization, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	checksum := hex.EncodeToString(hash[:])
	if checksum != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksum, sf.Metadata.Checksum, checksum)
	}

	var model Factorization
	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(&model); err != nil {
		return nil, nil, fmt.Errorf("decode model: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid model: %w", err)
	}

	return &model, &sf.Metadata, nil
}

// Exists reports whether a model file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
