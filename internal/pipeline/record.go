package pipeline

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/predictor"
)

// TimestampLayout is the YYYYMMDD_HHMMSS layout embedded in record file names
const TimestampLayout = "20060102_150405"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Record is the persisted output of a run:
//
//	{"user": <id>, "recomendaciones": {<name>: <score>, ...}}
//
// Entries keep rank order. Items without a catalog name, or whose name is
// already taken by a higher ranked item, are keyed by item id instead.
type Record struct {
	User            string
	Recommendations []predictor.Recommendation
}

// MarshalJSON writes the recommendations as an ordered JSON object
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	user, err := json.Marshal(r.User)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"user":`)
	buf.Write(user)
	buf.WriteString(`,"recomendaciones":{`)

	used := make(map[string]bool, len(r.Recommendations))
	first := true
	for _, rec := range r.Recommendations {
		name := recordKey(rec, used)
		used[name] = true

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(formatScore(rec.Score))
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// recordKey picks a unique object key for rec, in order of preference:
// display name, item id, "<name> (<id>)", then a numbered suffix.
func recordKey(rec predictor.Recommendation, used map[string]bool) string {
	if rec.Name != "" && rec.Name != dataset.UnknownProduct && !used[rec.Name] {
		return rec.Name
	}
	if !used[rec.ItemID] {
		return rec.ItemID
	}
	key := fmt.Sprintf("%s (%s)", rec.Name, rec.ItemID)
	for i := 2; used[key]; i++ {
		key = fmt.Sprintf("%s (%s) #%d", rec.Name, rec.ItemID, i)
	}
	return key
}

// formatScore renders NaN and infinities as null
func formatScore(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "null"
	}
	out, err := json.Marshal(score)
	if err != nil {
		return "null"
	}
	return string(out)
}

// RecordFileName returns recomendacion_user_<user>_<YYYYMMDD_HHMMSS>.json
func RecordFileName(userID string, at time.Time) string {
	return fmt.Sprintf("recomendacion_user_%s_%s.json", unsafeFileChars.ReplaceAllString(userID, "_"), at.Format(TimestampLayout))
}

// WriteRecord writes the record as indented JSON into dir and returns its path
func WriteRecord(dir string, record Record, at time.Time) (string, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode recommendation record: %w", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return "", fmt.Errorf("failed to indent recommendation record: %w", err)
	}
	pretty.WriteByte('\n')

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, RecordFileName(record.User, at))
	if err := os.WriteFile(path, pretty.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write recommendation record: %w", err)
	}
	return path, nil
}
