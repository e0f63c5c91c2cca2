package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/metrics"
	"github.com/yildizm/recsvd/internal/model"
	"github.com/yildizm/recsvd/internal/predictor"
	"github.com/yildizm/recsvd/internal/preprocess"
)

var fixedTime = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

type fixture struct {
	pipeline *Pipeline
	metrics  *metrics.Metrics
	outDir   string
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, saveModel bool, validator InputValidator) *fixture {
	t.Helper()
	dir := t.TempDir()

	store := model.NewStore(filepath.Join(dir, "models", "svd_model.gob.gz"))
	if saveModel {
		f := &model.Factorization{
			Rank:           2,
			Features:       4,
			SingularValues: []float64{2, 1},
			Components:     []float64{1, 1, 1, 1, 0, 1, 2, 3},
		}
		if _, err := store.Save(context.Background(), f, model.Metadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	var logs bytes.Buffer
	log, err := logger.New("pipeline", logger.Options{Level: "debug", Format: "json", Console: &logs})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	m := metrics.New()
	outDir := filepath.Join(dir, "recomendaciones")
	pl := New(predictor.New(store, log), Options{
		OutputDir: outDir,
		Metrics:   m,
		Validator: validator,
		Clock:     func() time.Time { return fixedTime },
	}, log)

	return &fixture{pipeline: pl, metrics: m, outDir: outDir, logs: &logs}
}

func testVector() dataset.InteractionVector {
	return dataset.InteractionVector{
		UserID: "u1",
		Items:  []string{"0", "1", "2", "3"},
		Values: []float64{0, 0, 0, 1},
	}
}

var testCatalog = dataset.Catalog{"0": "Zero", "1": "One", "2": "Two"}

func TestRunWritesRecord(t *testing.T) {
	fx := newFixture(t, true, nil)

	outcome, err := fx.pipeline.Run(context.Background(), testVector(), testCatalog, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.RunID == "" || outcome.UserID != "u1" {
		t.Errorf("Unexpected outcome identity %+v", outcome)
	}
	wantPath := filepath.Join(fx.outDir, "recomendacion_user_u1_20240305_140709.json")
	if outcome.RecordPath != wantPath {
		t.Errorf("RecordPath = %s, want %s", outcome.RecordPath, wantPath)
	}
	if len(outcome.Stages) != 6 || outcome.Stages[0].Stage != StageLoad || outcome.Stages[5].Stage != StageWrite {
		t.Errorf("Unexpected stages %+v", outcome.Stages)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}
	var decoded struct {
		User            string             `json:"user"`
		Recomendaciones map[string]float64 `json:"recomendaciones"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Record is not valid JSON: %v\n%s", err, data)
	}
	if decoded.User != "u1" {
		t.Errorf("Record user = %q, want u1", decoded.User)
	}
	want := map[string]float64{"Two": 7, "One": 4, "Zero": 1}
	for name, score := range want {
		if got := decoded.Recomendaciones[name]; math.Abs(got-score) > 1e-9 {
			t.Errorf("Record score for %s = %g, want %g", name, got, score)
		}
	}
	content := string(data)
	if !(strings.Index(content, `"Two"`) < strings.Index(content, `"One"`) &&
		strings.Index(content, `"One"`) < strings.Index(content, `"Zero"`)) {
		t.Errorf("Record keys not in rank order:\n%s", content)
	}

	if got := testutil.ToFloat64(fx.metrics.Runs.WithLabelValues(metrics.StatusSuccess)); got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(fx.metrics.ModelFeatures); got != 4 {
		t.Errorf("Expected model features 4, got %v", got)
	}
	if !strings.Contains(fx.logs.String(), "Recommendation saved to") {
		t.Errorf("Expected save to be logged, got %s", fx.logs.String())
	}
	if !strings.Contains(fx.logs.String(), `"stage":"rank"`) || !strings.Contains(fx.logs.String(), `"run_id":"`+outcome.RunID+`"`) {
		t.Errorf("Expected stage timings to be logged with the run id, got %s", fx.logs.String())
	}
}

func TestRunRecordKeepsUnmappedItems(t *testing.T) {
	fx := newFixture(t, true, nil)
	vector := testVector()
	vector.Values = []float64{0, 0, 0, 0}

	outcome, err := fx.pipeline.Run(context.Background(), vector, dataset.Catalog{"9": "Nine"}, 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcome.Result.Recommendations) != 4 {
		t.Fatalf("Expected 4 recommendations, got %d", len(outcome.Result.Recommendations))
	}

	data, err := os.ReadFile(outcome.RecordPath)
	if err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}
	var decoded struct {
		Recomendaciones map[string]float64 `json:"recomendaciones"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Record is not valid JSON: %v\n%s", err, data)
	}
	if len(decoded.Recomendaciones) != 4 {
		t.Errorf("Record has %d entries, want 4:\n%s", len(decoded.Recomendaciones), data)
	}
	for _, id := range []string{"0", "1", "2", "3"} {
		if _, ok := decoded.Recomendaciones[id]; !ok {
			t.Errorf("Record is missing item %s:\n%s", id, data)
		}
	}
}

func TestRunLoadsModelOnce(t *testing.T) {
	fx := newFixture(t, true, nil)

	for i := 0; i < 2; i++ {
		outcome, err := fx.pipeline.Run(context.Background(), testVector(), testCatalog, 1)
		if err != nil {
			t.Fatalf("Run() #%d error = %v", i, err)
		}
		if i == 1 && outcome.Stages[0].Stage == StageLoad {
			t.Error("Second run must reuse the loaded model")
		}
	}
	if got := testutil.ToFloat64(fx.metrics.ModelLoads); got != 1 {
		t.Errorf("Expected 1 model load, got %v", got)
	}
}

func TestRunMissingModel(t *testing.T) {
	fx := newFixture(t, false, nil)

	outcome, err := fx.pipeline.Run(context.Background(), testVector(), testCatalog, 5)
	if !errors.Is(err, predictor.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if outcome != nil {
		t.Error("Failed run must not return an outcome")
	}
	if got := testutil.ToFloat64(fx.metrics.Errors.WithLabelValues("not_found")); got != 1 {
		t.Errorf("Expected 1 not_found error, got %v", got)
	}
	if !strings.Contains(fx.logs.String(), "Recommendation pipeline failed") {
		t.Errorf("Expected failure to be logged, got %s", fx.logs.String())
	}
	if _, err := os.Stat(fx.outDir); !os.IsNotExist(err) {
		t.Error("No output directory should be created for a failed run")
	}
}

func TestRunRankErrors(t *testing.T) {
	fx := newFixture(t, true, nil)

	_, err := fx.pipeline.Run(context.Background(), testVector(), dataset.Catalog{}, 5)
	if !errors.Is(err, predictor.ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}
	_, err = fx.pipeline.Run(context.Background(), testVector(), testCatalog, 0)
	if !errors.Is(err, predictor.ErrInvalidCount) {
		t.Errorf("Expected ErrInvalidCount, got %v", err)
	}
	if got := testutil.ToFloat64(fx.metrics.Runs.WithLabelValues(metrics.StatusError)); got != 2 {
		t.Errorf("Expected 2 failed runs, got %v", got)
	}
}

func TestRunStrictValidation(t *testing.T) {
	fx := newFixture(t, true, preprocess.NewValidator(4))

	v := testVector()
	v.Values = []float64{0, 5, 0, 1}
	_, err := fx.pipeline.Run(context.Background(), v, testCatalog, 5)
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, preprocess.ErrNotBinary) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if got := testutil.ToFloat64(fx.metrics.Errors.WithLabelValues("validation")); got != 1 {
		t.Errorf("Expected 1 validation error, got %v", got)
	}

	outcome, err := fx.pipeline.Run(context.Background(), testVector(), testCatalog, 5)
	if err != nil {
		t.Fatalf("Run() with binary vector error = %v", err)
	}
	if outcome.Stages[0].Stage != StageValidate {
		t.Errorf("Expected validate as the first stage once loaded, got %+v", outcome.Stages)
	}
}

type panicValidator struct{}

func (panicValidator) ValidateVector(dataset.InteractionVector) error {
	panic("validator exploded")
}

func TestRunRecoversPanic(t *testing.T) {
	fx := newFixture(t, true, panicValidator{})

	outcome, err := fx.pipeline.Run(context.Background(), testVector(), testCatalog, 5)
	if err == nil || !strings.Contains(err.Error(), "validator exploded") {
		t.Fatalf("Expected recovered panic error, got %v", err)
	}
	if outcome != nil {
		t.Error("Panicked run must not return an outcome")
	}
}

func TestRunCancelled(t *testing.T) {
	fx := newFixture(t, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.pipeline.Run(ctx, testVector(), testCatalog, 5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if got := testutil.ToFloat64(fx.metrics.Errors.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("Expected 1 cancelled error, got %v", got)
	}
}
