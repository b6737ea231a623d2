// Package store persists authored masks and caches rendered previews.
package store

import (
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/util"
)

// FileMaskStore writes masks as PNG files under a media directory that is
// served at URLPrefix. Every save gets a new file so a re-authored mask never
// overwrites one a cached preview may still reference.
type FileMaskStore struct {
	Dir       string
	URLPrefix string
}

func NewFileMaskStore(dir, urlPrefix string) *FileMaskStore {
	return &FileMaskStore{Dir: dir, URLPrefix: urlPrefix}
}

// Save writes mask as masks/<product>-<uuid>.png and returns its address.
func (s *FileMaskStore) Save(ctx context.Context, productID string, mask *image.Gray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := imagepkg.Encoder{}.Bytes(mask, imagepkg.PNG)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.Dir, "masks")
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("store: create %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s-%s.png", slug.Make(productID), uuid.NewString())
	tmp := filepath.Join(dir, "."+name)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("store: write mask: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store: write mask: %w", err)
	}
	return path.Join(s.URLPrefix, "masks", name), nil
}

// Remove deletes a mask written by Save. Addresses outside URLPrefix/masks
// are rejected.
func (s *FileMaskStore) Remove(url string) error {
	dir := path.Join(s.URLPrefix, "masks")
	if path.Dir(url) != dir {
		return fmt.Errorf("store: %q is not a stored mask", url)
	}
	if err := os.Remove(filepath.Join(s.Dir, "masks", path.Base(url))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove mask: %w", err)
	}
	return nil
}
