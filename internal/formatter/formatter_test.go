package formatter

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "json", "markdown", "csv"} {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q) error = %v", format, err)
		}
	}
	if _, err := New("xml", false); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestJSONFormatter(t *testing.T) {
	outcome := testOutcome()
	outcome.Result.Recommendations[2].Score = math.NaN()

	out, err := NewJSON().Format(outcome)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded RunOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, out)
	}
	if decoded.RunID != "run-1" || decoded.User != "42" {
		t.Errorf("Unexpected identity %+v", decoded)
	}
	if decoded.Summary == nil || decoded.Summary.Eligible != 2300 || decoded.Summary.Returned != 3 {
		t.Errorf("Unexpected summary %+v", decoded.Summary)
	}
	if len(decoded.Recommendations) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(decoded.Recommendations))
	}
	first := decoded.Recommendations[0]
	if first.Rank != 1 || first.Name != "Lamp" || first.Score == nil || *first.Score != 0.9 {
		t.Errorf("Unexpected first recommendation %+v", first)
	}
	if decoded.Recommendations[2].Score != nil {
		t.Error("NaN score should be encoded as null")
	}
	if len(decoded.Stages) != 2 || decoded.Stages[0].DurationMS != 1 {
		t.Errorf("Unexpected stages %+v", decoded.Stages)
	}
}

func TestCSVFormatter(t *testing.T) {
	out, err := NewCSV().Format(testOutcome())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d", len(records))
	}
	if records[0][0] != "User" || records[1][2] != "7" || records[1][4] != "0.9000" {
		t.Errorf("Unexpected CSV content %v", records)
	}
	if records[3][3] != "Desk | large" {
		t.Errorf("Unexpected name %q", records[3][3])
	}
}

func TestEscapeCSVString(t *testing.T) {
	if got := escapeCSVString("a\nb\rc"); got != "a b c" {
		t.Errorf("escapeCSVString() = %q", got)
	}
	long := strings.Repeat("x", 150)
	if got := escapeCSVString(long); len(got) != 100 || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected truncation to 100 chars, got %d", len(got))
	}
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdown().Format(testOutcome())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := string(out)

	for _, want := range []string{
		"# Recommendations for user 42",
		"Generated: 2024-01-01 12:00:00",
		"| Eligible Items | 2,300 |",
		"| 1 | 7 | Lamp | 0.9000 |",
		`Desk \| large`,
		"## Stage Timings",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Markdown missing %q:\n%s", want, output)
		}
	}
}
