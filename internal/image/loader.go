package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrEmptyAddress = errors.New("imagepkg: empty image address")

// Loader resolves an image address to a decoded image.
type Loader interface {
	Load(ctx context.Context, addr string) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, addr string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, addr string) (image.Image, error) {
	return f(ctx, addr)
}

// AssetLoader loads catalog assets and authored masks.
//
// Addresses starting with http:// or https:// are fetched. Addresses under
// one of Roots' URL prefixes (e.g. "/media") are read from the mapped
// directory. Anything else is a path relative to DataDir.
type AssetLoader struct {
	DataDir string
	Roots   map[string]string
	Timeout time.Duration
}

func (l *AssetLoader) Load(ctx context.Context, addr string) (image.Image, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return DownloadImage(ctx, addr, l.timeout())
	}

	path, err := l.resolve(addr)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imagepkg: read %s: %w", addr, err)
	}
	img, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("imagepkg: decode %s: %w", addr, err)
	}
	return img, nil
}

func (l *AssetLoader) resolve(addr string) (string, error) {
	for prefix, dir := range l.Roots {
		if rest, ok := strings.CutPrefix(addr, strings.TrimSuffix(prefix, "/")+"/"); ok {
			return within(dir, rest)
		}
	}
	return within(l.DataDir, addr)
}

// within joins rel onto root and refuses results that escape root.
func within(root, rel string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(rel))
	p := filepath.Join(root, clean)
	if r, err := filepath.Rel(root, p); err != nil || strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("imagepkg: address %q escapes %s", rel, root)
	}
	return p, nil
}

func (l *AssetLoader) timeout() time.Duration {
	if l.Timeout <= 0 {
		return 12 * time.Second
	}
	return l.Timeout
}
