package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"tunefetch/internal/fetch"
	"tunefetch/internal/services"
	"tunefetch/internal/testsupport"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFetchImageDecodesPNG(t *testing.T) {
	payload := pngBytes(t, 4, 3)
	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Fetch.UserAgent = "tunefetch-test"
	img, format, err := fetch.FetchImage(context.Background(), fetch.NewHTTPClient(cfg), server.URL+"/thumb.webp")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("unexpected image %s %v", format, img.Bounds())
	}
	if agent := <-agents; agent != "tunefetch-test" {
		t.Fatalf("expected configured user agent, got %q", agent)
	}
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := fetch.NewHTTPClient(nil).Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestFetchImageRejectsGarbage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	if _, _, err := fetch.FetchImage(context.Background(), fetch.NewHTTPClient(nil), server.URL); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchEmptyURL(t *testing.T) {
	if _, err := fetch.NewHTTPClient(nil).Fetch(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlaceholderIsTransparentSquare(t *testing.T) {
	img := fetch.Placeholder()
	if img.Bounds().Dx() != fetch.PlaceholderSize || img.Bounds().Dy() != fetch.PlaceholderSize {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, _, _, a := img.At(250, 250).RGBA(); a != 0 {
		t.Fatalf("expected transparent pixel, alpha=%d", a)
	}
}
