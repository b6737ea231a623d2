package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("catalog: not found")

// Catalog is the in-memory product and fabric catalog. Mask references are
// the only mutable part; they are persisted to a JSON side file so that
// the CSV exports stay read-only.
type Catalog struct {
	mu        sync.RWMutex
	products  map[string]Product
	fabrics   []Fabric
	masks     map[string]string
	masksPath string
}

// New builds a catalog from already-loaded records. masksPath may be empty,
// in which case mask references are kept in memory only.
func New(products []Product, fabrics []Fabric, masksPath string) *Catalog {
	c := &Catalog{
		products:  make(map[string]Product, len(products)),
		fabrics:   fabrics,
		masks:     map[string]string{},
		masksPath: masksPath,
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// LoadFromDataDir loads products, fabrics and mask overrides from dataDir.
// Missing CSV files yield empty lists; the error reports the first file that
// exists but cannot be parsed.
func LoadFromDataDir(dataDir, productsFile, fabricsFile, masksFile string) (*Catalog, error) {
	var products []Product
	var fabrics []Fabric
	var found bool

	if p := filepath.Join(dataDir, productsFile); exists(p) {
		found = true
		ps, err := LoadProducts(p)
		if err != nil {
			return nil, err
		}
		products = ps
	}
	if p := filepath.Join(dataDir, fabricsFile); exists(p) {
		found = true
		fs, err := LoadFabrics(p)
		if err != nil {
			return nil, err
		}
		fabrics = fs
	}

	masksPath := filepath.Join(dataDir, masksFile)
	c := New(products, fabrics, masksPath)
	overrides, err := loadMaskOverrides(masksPath)
	if err != nil {
		return nil, err
	}
	c.masks = overrides
	if !found {
		return c, fmt.Errorf("no catalog CSVs found in %s", dataDir)
	}
	return c, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Product returns the product with its current mask reference applied.
func (c *Catalog) Product(id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %q", ErrNotFound, id)
	}
	if m, ok := c.masks[id]; ok {
		p.MaskURL = m
	}
	return p, nil
}

// Products lists all products ordered by id.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, err := c.Product(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Fabric(id string) (Fabric, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.fabrics {
		if f.ID == id {
			return f, nil
		}
	}
	return Fabric{}, fmt.Errorf("%w: fabric %q", ErrNotFound, id)
}

func (c *Catalog) Fabrics(opt FilterOptions) []Fabric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.fabrics, opt)
}

// SetMaskURL replaces the product's mask reference. The previous mask
// resource is not touched; re-authoring always produces a new address.
func (c *Catalog) SetMaskURL(productID, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[productID]; !ok {
		return fmt.Errorf("%w: product %q", ErrNotFound, productID)
	}
	if c.masksPath != "" {
		next := make(map[string]string, len(c.masks)+1)
		for k, v := range c.masks {
			next[k] = v
		}
		next[productID] = url
		if err := saveMaskOverrides(c.masksPath, next); err != nil {
			return fmt.Errorf("catalog: save mask overrides: %w", err)
		}
	}
	c.masks[productID] = url
	return nil
}
