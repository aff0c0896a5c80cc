package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"card-rewards-api/internal/models"
)

// CardRepository supplies the card catalog to the engine.
type CardRepository interface {
	LoadCards(ctx context.Context) ([]models.CreditCard, error)
}

// LoadFile reads a catalog file. Files ending in .json are decoded as JSON,
// anything else as YAML.
func LoadFile(path string) ([]CardDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var file File
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	return file.Cards, nil
}

// StaticRepository serves a fixed, already-normalized catalog.
type StaticRepository struct {
	cards []models.CreditCard
}

// NewStaticRepository normalizes docs once and serves them on every load.
func NewStaticRepository(docs []CardDocument) *StaticRepository {
	return &StaticRepository{cards: NormalizeAll(docs)}
}

// LoadCards returns the catalog.
func (r *StaticRepository) LoadCards(ctx context.Context) ([]models.CreditCard, error) {
	return r.cards, nil
}
