package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/youruser/fabricview/internal/util"
)

// DownloadImage downloads an image from URL and returns it decoded.
func DownloadImage(ctx context.Context, url string, timeout time.Duration) (image.Image, error) {
	body, err := util.GetBytes(ctx, url, timeout)
	if err != nil {
		return nil, fmt.Errorf("imagepkg: download %s: %w", url, err)
	}
	img, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagepkg: decode %s: %w", url, err)
	}
	return img, nil
}
