package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `user_id,10,11,12,13
u1,1,0,,1
u2,0,0,0,0
u3,0,1,1,0
`

func TestParseInteractions(t *testing.T) {
	m, err := ParseInteractions(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseInteractions() error = %v", err)
	}

	if len(m.Users) != 3 {
		t.Errorf("Expected 3 users, got %d", len(m.Users))
	}
	if len(m.Items) != 4 || m.Items[0] != "10" || m.Items[3] != "13" {
		t.Errorf("Unexpected items %v", m.Items)
	}
	if m.Rows[0][2] != 0 {
		t.Errorf("Expected empty cell to read as 0, got %v", m.Rows[0][2])
	}
	if m.Rows[2][1] != 1 {
		t.Errorf("Expected u3 item 11 = 1, got %v", m.Rows[2][1])
	}
}

func TestParseInteractionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"empty file", "", "empty interactions file"},
		{"header only", "user_id,1,2\n", "no user rows"},
		{"no item columns", "user_id\nu1\n", "at least one item column"},
		{"bad number", "user_id,1,2\nu1,1,x\n", "line 2, item 2"},
		{"ragged row", "user_id,1,2\nu1,1\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInteractions(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestMatrixRowAndUser(t *testing.T) {
	m, err := ParseInteractions(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseInteractions() error = %v", err)
	}

	v, err := m.User("u3")
	if err != nil {
		t.Fatalf("User() error = %v", err)
	}
	if v.UserID != "u3" || v.Len() != 4 {
		t.Errorf("Unexpected vector %+v", v)
	}
	consumed := v.Consumed()
	if len(consumed) != 2 || !consumed["11"] || !consumed["12"] {
		t.Errorf("Unexpected consumed set %v", consumed)
	}

	if _, err := m.User("missing"); err == nil {
		t.Error("Expected error for unknown user")
	}
	if _, err := m.Row(3); err == nil {
		t.Error("Expected error for out of range row")
	}
	if _, err := m.Row(-1); err == nil {
		t.Error("Expected error for negative row")
	}
}

func TestMatrixDense(t *testing.T) {
	m, err := ParseInteractions(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseInteractions() error = %v", err)
	}

	d := m.Dense()
	r, c := d.Dims()
	if r != 3 || c != 4 {
		t.Fatalf("Expected 3x4 matrix, got %dx%d", r, c)
	}
	if d.At(0, 3) != 1 || d.At(2, 2) != 1 || d.At(1, 0) != 0 {
		t.Error("Dense matrix does not match rows")
	}
}

func TestReadInteractionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	m, err := ReadInteractions(path)
	if err != nil {
		t.Fatalf("ReadInteractions() error = %v", err)
	}
	if len(m.Rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(m.Rows))
	}

	if _, err := ReadInteractions(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "productos.json")
	if err := os.WriteFile(path, []byte(`{"5": "Widget", "7": "Gadget"}`), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(catalog) != 2 {
		t.Errorf("Expected 2 products, got %d", len(catalog))
	}
	if got := catalog.Name("5"); got != "Widget" {
		t.Errorf("Name(5) = %q, want Widget", got)
	}
	if got := catalog.Name("999"); got != UnknownProduct {
		t.Errorf("Name(999) = %q, want %q", got, UnknownProduct)
	}
	if got := catalog.NameOr("999", "n/a"); got != "n/a" {
		t.Errorf("NameOr(999) = %q, want n/a", got)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`["not", "an", "object"]`), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := LoadCatalog(bad); err == nil {
		t.Error("Expected error for non-object catalog")
	}

	null := filepath.Join(dir, "null.json")
	if err := os.WriteFile(null, []byte(`null`), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	empty, err := LoadCatalog(null)
	if err != nil {
		t.Fatalf("LoadCatalog(null) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil catalog, got %v", empty)
	}
}
