package pipeline

import (
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/yildizm/recsvd/internal/predictor"
)

func TestRecordMarshalJSON(t *testing.T) {
	record := Record{
		User: `user "7"`,
		Recommendations: []predictor.Recommendation{
			{ItemID: "9", Name: "Unknown", Score: 4.5},
			{ItemID: "3", Name: "Lamp", Score: 2},
			{ItemID: "8", Name: "Unknown", Score: 1.5},
			{ItemID: "1", Name: "Chair", Score: math.NaN()},
			{ItemID: "5", Name: "Lamp", Score: 1},
			{ItemID: "Lamp", Name: "Lamp", Score: 0.5},
		},
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"user":"user \"7\"","recomendaciones":{"9":4.5,"Lamp":2,"8":1.5,"Chair":null,"5":1,"Lamp (Lamp)":0.5}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRecordMarshalEmpty(t *testing.T) {
	data, err := json.Marshal(Record{User: "u"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"user":"u","recomendaciones":{}}` {
		t.Errorf("Unexpected empty record %s", data)
	}
}

func TestRecordFileName(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := map[string]string{
		"42":         "recomendacion_user_42_20250102_030405.json",
		"user-a.b":   "recomendacion_user_user-a.b_20250102_030405.json",
		"../etc/pwd": "recomendacion_user_.._etc_pwd_20250102_030405.json",
		"a b":        "recomendacion_user_a_b_20250102_030405.json",
	}
	for user, want := range tests {
		if got := RecordFileName(user, at); got != want {
			t.Errorf("RecordFileName(%q) = %q, want %q", user, got, want)
		}
	}
}

func TestWriteRecordIndented(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteRecord(dir, Record{
		User:            "5",
		Recommendations: []predictor.Recommendation{{ItemID: "1", Name: "Desk", Score: 3}},
	}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if !strings.HasSuffix(path, "recomendacion_user_5_20250601_120000.json") {
		t.Errorf("Unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"recomendaciones\": {\n    \"Desk\": 3\n  }") {
		t.Errorf("Record is not indented as expected:\n%s", data)
	}
}
