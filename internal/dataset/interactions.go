// Package dataset reads the user x item interaction matrix and the product
// catalog that feed the recommender.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// InteractionVector is one user's ratings, one entry per catalog item.
// UserID is the vector's identifying key.
type InteractionVector struct {
	UserID string
	Items  []string
	Values []float64
}

// Len returns the number of items in the vector
func (v InteractionVector) Len() int {
	return len(v.Values)
}

// Consumed returns the item ids the user already interacted with (strictly positive value)
func (v InteractionVector) Consumed() map[string]bool {
	consumed := make(map[string]bool)
	for i, value := range v.Values {
		if value > 0 && i < len(v.Items) {
			consumed[v.Items[i]] = true
		}
	}
	return consumed
}

// Matrix is the full interaction matrix, one row per user
type Matrix struct {
	Users []string
	Items []string
	Rows  [][]float64
}

// Row returns the interaction vector at position i
func (m *Matrix) Row(i int) (InteractionVector, error) {
	if i < 0 || i >= len(m.Rows) {
		return InteractionVector{}, fmt.Errorf("row %d out of range (matrix has %d users)", i, len(m.Rows))
	}
	return InteractionVector{
		UserID: m.Users[i],
		Items:  m.Items,
		Values: m.Rows[i],
	}, nil
}

// User returns the interaction vector for a user id
func (m *Matrix) User(id string) (InteractionVector, error) {
	for i, user := range m.Users {
		if user == id {
			return m.Row(i)
		}
	}
	return InteractionVector{}, fmt.Errorf("user %s not found in interaction matrix", id)
}

// Dense copies the matrix into a gonum dense matrix
func (m *Matrix) Dense() *mat.Dense {
	data := make([]float64, 0, len(m.Rows)*len(m.Items))
	for _, row := range m.Rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(m.Rows), len(m.Items), data)
}

// ReadInteractions loads an interaction matrix from a CSV file
func ReadInteractions(path string) (*Matrix, error) {
	cleanPath := filepath.Clean(path)
	// #nosec G304 - path comes from configuration or an explicit flag
	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open interactions file: %w", err)
	}
	defer func() { _ = file.Close() }()

	m, err := ParseInteractions(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cleanPath, err)
	}
	return m, nil
}

// ParseInteractions reads a CSV table whose header is <label>,<item>,... and
// whose rows are <user>,<value>,... Empty cells read as zero.
func ParseInteractions(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty interactions file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header must contain a user column and at least one item column")
	}

	items := make([]string, len(header)-1)
	for i, item := range header[1:] {
		items[i] = strings.TrimSpace(item)
	}

	m := &Matrix{Items: items}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(items))
		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, item %s: %w", line, items[i], err)
			}
			row[i] = value
		}

		m.Users = append(m.Users, strings.TrimSpace(record[0]))
		m.Rows = append(m.Rows, row)
	}

	if len(m.Rows) == 0 {
		return nil, fmt.Errorf("interactions file has no user rows")
	}
	return m, nil
}
