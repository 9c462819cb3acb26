package fetch

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"

	"tunefetch/internal/services"
)

// PlaceholderSize is the edge length of the substitute artwork.
const PlaceholderSize = 500

// maxImageBytes bounds artwork downloads.
const maxImageBytes = 20 << 20

// FetchImage downloads url through client and decodes it. The decoder is
// chosen from the payload, so the URL extension does not matter.
func FetchImage(ctx context.Context, client Client, url string) (image.Image, string, error) {
	if client == nil {
		return nil, "", services.Wrap(services.ErrConfiguration, "fetch", "image", "no client", nil)
	}
	body, err := client.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	img, format, err := image.Decode(io.LimitReader(body, maxImageBytes))
	if err != nil {
		return nil, "", services.Wrap(services.ErrCollaborator, "fetch", "image", fmt.Sprintf("decode %s", url), err)
	}
	return img, format, nil
}

// Placeholder returns a fully transparent square image.
func Placeholder() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
}
