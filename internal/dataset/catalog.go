package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// UnknownProduct is the display name for item ids missing from the catalog
const UnknownProduct = "Unknown"

// Catalog maps item identifiers to display names
type Catalog map[string]string

// Name returns the display name for an item id, or UnknownProduct
func (c Catalog) Name(itemID string) string {
	return c.NameOr(itemID, UnknownProduct)
}

// NameOr returns the display name for an item id, or fallback when unmapped
func (c Catalog) NameOr(itemID, fallback string) string {
	if name, ok := c[itemID]; ok {
		return name
	}
	return fallback
}

// LoadCatalog reads a JSON object of item id to display name
func LoadCatalog(path string) (Catalog, error) {
	cleanPath := filepath.Clean(path)
	// #nosec G304 - path comes from configuration or an explicit flag
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read product catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog %s: %w", cleanPath, err)
	}
	if catalog == nil {
		catalog = Catalog{}
	}
	return catalog, nil
}
