package download

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"tunefetch/internal/queue"
)

// Info is the subset of the yt-dlp info JSON that later stages use.
type Info struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Artist     string  `json:"artist"`
	Track      string  `json:"track"`
	Album      string  `json:"album"`
	Thumbnail  string  `json:"thumbnail"`
	WebpageURL string  `json:"webpage_url"`
	UploadDate string  `json:"upload_date"`
	Extractor  string  `json:"extractor_key"`
	Duration   float64 `json:"duration"`
}

// Result keys published by the download stage.
const (
	ResultTitle      = "title"
	ResultUploader   = "uploader"
	ResultArtist     = "artist"
	ResultTrack      = "track"
	ResultAlbum      = "album"
	ResultThumbnail  = "thumbnail"
	ResultDuration   = "duration"
	ResultWebpageURL = "webpage_url"
	ResultUploadDate = "upload_date"
)

// ReadInfo decodes the info JSON at path.
func ReadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read info json: %w", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("decode info json: %w", err)
	}
	if strings.TrimSpace(info.Uploader) == "" {
		info.Uploader = info.Channel
	}
	return info, nil
}

// Publish stores the non-empty info fields under the download namespace.
func (i Info) Publish(results *queue.ResultStore) {
	strs := map[string]string{
		ResultTitle:      i.Title,
		ResultUploader:   i.Uploader,
		ResultArtist:     i.Artist,
		ResultTrack:      i.Track,
		ResultAlbum:      i.Album,
		ResultThumbnail:  i.Thumbnail,
		ResultWebpageURL: i.WebpageURL,
		ResultUploadDate: i.UploadDate,
	}
	for name, value := range strs {
		if value = strings.TrimSpace(value); value != "" {
			results.SetString(queue.ResultKey(StageName, name), value)
		}
	}
	if i.Duration > 0 {
		results.SetNumber(queue.ResultKey(StageName, ResultDuration), i.Duration)
	}
}
