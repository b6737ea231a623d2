package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// readCSV returns the data rows of a CSV file plus a column lookup by
// header name.
func readCSV(path string) ([][]string, func(row []string, name string) string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 1 {
		return nil, nil, fmt.Errorf("csv %s has no header", path)
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	return rows[1:], get, nil
}

// LoadFabrics reads a fabrics CSV with columns id, family, variant, color,
// texture. Rows without an id are skipped.
func LoadFabrics(path string) ([]Fabric, error) {
	rows, get, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	out := []Fabric{}
	for _, row := range rows {
		f := Fabric{
			ID:         get(row, "id"),
			Family:     get(row, "family"),
			Variant:    get(row, "variant"),
			Color:      get(row, "color"),
			TextureURL: get(row, "texture"),
		}
		if f.ID == "" {
			continue
		}
		if f.TextureURL == "-" {
			f.TextureURL = ""
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadProducts reads a products CSV with columns id, name, image, mask.
func LoadProducts(path string) ([]Product, error) {
	rows, get, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	out := []Product{}
	for _, row := range rows {
		p := Product{
			ID:       get(row, "id"),
			Name:     get(row, "name"),
			ImageURL: get(row, "image"),
			MaskURL:  get(row, "mask"),
		}
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// loadMaskOverrides reads the product id -> mask address map written by
// SetMaskURL. A missing file is an empty map.
func loadMaskOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

func saveMaskOverrides(path string, m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
