package model

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
)

func testFactorization() *Factorization {
	return &Factorization{
		Rank:                   2,
		Features:               3,
		SingularValues:         []float64{4, 2},
		Components:             []float64{1, 0, 0, 0, 1, 0},
		ExplainedVarianceRatio: []float64{0.6, 0.3},
		Items:                  []string{"10", "11", "12"},
		Params:                 FitParams{Algorithm: AlgorithmExact, Components: 2},
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "svd_model.gob.gz")
	store := NewStore(path)
	ctx := context.Background()

	if store.Exists() {
		t.Fatal("Store should not exist before saving")
	}

	trainedAt := time.Now().Add(-time.Minute)
	meta, err := store.Save(ctx, testFactorization(), Metadata{TrainedAt: trainedAt, UserCount: 10})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta.Checksum == "" || meta.SizeBytes == 0 {
		t.Errorf("Save() should fill checksum and size, got %+v", meta)
	}
	if meta.Algorithm != AlgorithmExact {
		t.Errorf("Expected algorithm from params, got %q", meta.Algorithm)
	}
	if ev := meta.ExplainedVariance; ev < 0.899 || ev > 0.901 {
		t.Errorf("Expected explained variance 0.9, got %g", meta.ExplainedVariance)
	}
	if !store.Exists() {
		t.Error("Store should exist after saving")
	}

	loaded, loadedMeta, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Rank != 2 || loaded.Features != 3 {
		t.Errorf("Unexpected dimensions %dx%d", loaded.Rank, loaded.Features)
	}
	if !floats.Equal(loaded.Components, testFactorization().Components) {
		t.Errorf("Components differ after round trip: %v", loaded.Components)
	}
	if len(loaded.Items) != 3 || loaded.Items[2] != "12" {
		t.Errorf("Items differ after round trip: %v", loaded.Items)
	}
	if loadedMeta.UserCount != 10 || loadedMeta.Checksum != meta.Checksum {
		t.Errorf("Metadata differs after round trip: %+v", loadedMeta)
	}
	if !loadedMeta.TrainedAt.Equal(trainedAt) {
		t.Errorf("TrainedAt = %v, want %v", loadedMeta.TrainedAt, trainedAt)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the model file, found %d entries", len(entries))
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.gob.gz"))
	_, _, err := store.Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob.gz")
	if err := os.WriteFile(path, []byte("not a model"), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	_, _, err := NewStore(path).Load(context.Background())
	if err == nil {
		t.Fatal("Expected error for corrupt file")
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Error("Corrupt file must not be reported as missing")
	}
}

func TestStoreLoadChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob.gz")
	store := NewStore(path)
	ctx := context.Background()

	if _, err := store.Save(ctx, testFactorization(), Metadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	_ = f.Close()

	sf.Metadata.Checksum = "deadbeef"
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := gob.NewEncoder(out).Encode(sf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	_ = out.Close()

	if _, _, err := store.Load(ctx); !errors.Is(err, ErrChecksum) {
		t.Errorf("Expected ErrChecksum, got %v", err)
	}
}

func TestStoreSaveInvalid(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "model.gob.gz"))
	bad := testFactorization()
	bad.Components = bad.Components[:2]

	if _, err := store.Save(context.Background(), bad, Metadata{}); err == nil {
		t.Error("Expected error when saving an invalid model")
	}
	if store.Exists() {
		t.Error("Invalid model must not be written")
	}
}
