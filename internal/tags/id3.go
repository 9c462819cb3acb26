package tags

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/bogem/id3v2/v2"

	"tunefetch/internal/logging"
	"tunefetch/internal/textutil"
)

type id3Handle struct {
	tag    *id3v2.Tag
	logger *slog.Logger
	closed bool
}

func openID3(path string, logger *slog.Logger) (*id3Handle, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("open id3 tag: %w", err)
	}
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	return &id3Handle{tag: tag, logger: logger}, nil
}

func (h *id3Handle) Read(field Field) string {
	switch field {
	case Title:
		return textutil.CleanValue(h.tag.Title())
	case Artist:
		return textutil.CleanValue(h.tag.Artist())
	case Album:
		return textutil.CleanValue(h.tag.Album())
	case Year:
		return textutil.CleanValue(h.tag.Year())
	case Genre:
		return textutil.CleanValue(h.tag.Genre())
	case Track:
		return textutil.CleanValue(h.tag.GetTextFrame(h.tag.CommonID("Track number/Position in set")).Text)
	case Comment:
		for _, f := range h.tag.GetFrames(h.tag.CommonID("Comments")) {
			if cf, ok := f.(id3v2.CommentFrame); ok {
				return textutil.CleanValue(cf.Text)
			}
		}
	}
	return ""
}

func (h *id3Handle) Write(field Field, value string) {
	value = textutil.CleanValue(value)
	switch field {
	case Title:
		h.tag.SetTitle(value)
	case Artist:
		h.tag.SetArtist(value)
	case Album:
		h.tag.SetAlbum(value)
	case Year:
		h.tag.SetYear(value)
	case Genre:
		h.tag.SetGenre(value)
	case Track:
		id := h.tag.CommonID("Track number/Position in set")
		h.tag.DeleteFrames(id)
		h.tag.AddTextFrame(id, h.tag.DefaultEncoding(), value)
	case Comment:
		h.tag.DeleteFrames(h.tag.CommonID("Comments"))
		h.tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     value,
		})
	default:
		h.logger.Debug("ignoring unknown tag field", logging.String("field", string(field)))
	}
}

func (h *id3Handle) Artwork() image.Image {
	for _, f := range h.tag.GetFrames(h.tag.CommonID("Attached picture")) {
		pf, ok := f.(id3v2.PictureFrame)
		if !ok || len(pf.Picture) == 0 {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(pf.Picture))
		if err != nil {
			h.logger.Debug("embedded artwork unreadable", logging.Error(err))
			return nil
		}
		return img
	}
	return nil
}

// SetArtwork embeds the PNG in file when given, otherwise img encoded as PNG.
func (h *id3Handle) SetArtwork(img image.Image, file string) {
	if img == nil {
		return
	}
	picture, err := pngBytes(img, file)
	if err != nil {
		h.logger.Warn("artwork encode failed", logging.Error(err))
		return
	}
	h.tag.DeleteFrames(h.tag.CommonID("Attached picture"))
	h.tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/png",
		PictureType: id3v2.PTFrontCover,
		Description: "Front cover",
		Picture:     picture,
	})
}

func pngBytes(img image.Image, file string) ([]byte, error) {
	if file != "" {
		if data, err := os.ReadFile(file); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *id3Handle) Commit(context.Context) error {
	if h.closed {
		return fmt.Errorf("commit id3 tag: handle closed")
	}
	err := h.tag.Save()
	closeErr := h.Close()
	if err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return closeErr
}

func (h *id3Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.tag.Close()
}
