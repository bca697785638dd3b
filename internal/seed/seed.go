// Package seed installs the default global categories.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"hesab/internal/core"
	"hesab/internal/storage"
)

//go:embed categories.yaml
var categoriesYAML []byte

type file struct {
	Categories []struct {
		Name  string `yaml:"name"`
		Type  string `yaml:"type"`
		Icon  string `yaml:"icon"`
		Color string `yaml:"color"`
	} `yaml:"categories"`
}

// DefaultCategories parses the embedded category list.
func DefaultCategories() ([]core.Category, error) {
	return parse(categoriesYAML)
}

func parse(data []byte) ([]core.Category, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse default categories: %w", err)
	}
	out := make([]core.Category, 0, len(f.Categories))
	for _, c := range f.Categories {
		cat := core.Category{
			Name:      c.Name,
			Type:      core.CategoryType(c.Type),
			Icon:      c.Icon,
			Color:     c.Color,
			IsDefault: true,
		}
		if cat.Name == "" || !cat.Type.Valid() {
			return nil, fmt.Errorf("default category %q: %w", c.Name, core.ErrInvalidKind)
		}
		out = append(out, cat)
	}
	return out, nil
}

// Seed upserts the default categories. Running it twice leaves one copy of each.
func Seed(ctx context.Context, store storage.Categories) (int, error) {
	cats, err := DefaultCategories()
	if err != nil {
		return 0, err
	}
	for _, c := range cats {
		if _, err := store.UpsertCategory(ctx, c); err != nil {
			return 0, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	return len(cats), nil
}
