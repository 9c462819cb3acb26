package tagging

import (
	"regexp"
	"strings"
	"unicode"

	"tunefetch/internal/textutil"
)

var (
	bracketPattern = regexp.MustCompile(`\s*[\(\[\{]([^\)\]\}]*)[\)\]\}]`)
	separators     = []string{" - ", " – ", " — ", " -- ", " ~ "}
	noiseWords     = map[string]bool{
		"official": true, "video": true, "audio": true, "hd": true, "hq": true,
		"4k": true, "explicit": true, "clip": true, "mv": true, "m/v": true,
	}
	noisePrefixes = []string{"lyric", "visuali", "remaster"}
	uploaderSuffixes = []string{" - Topic", "VEVO", " Official", "Official"}
)

// StripNoise removes bracketed decoration such as "(Official Video)" or
// "[HD]" from a page title. Brackets carrying anything else, like "(feat. X)"
// or "(Live)", are kept.
func StripNoise(title string) string {
	cleaned := bracketPattern.ReplaceAllStringFunc(title, func(segment string) string {
		inner := strings.ToLower(bracketPattern.FindStringSubmatch(segment)[1])
		if isNoise(inner) {
			return ""
		}
		return segment
	})
	return strings.Join(strings.Fields(cleaned), " ")
}

func isNoise(inner string) bool {
	words := strings.FieldsFunc(inner, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})
	for _, word := range words {
		if noiseWords[word] {
			return true
		}
		for _, prefix := range noisePrefixes {
			if strings.HasPrefix(word, prefix) {
				return true
			}
		}
	}
	return false
}

// SplitTitle derives artist and track title from a page title. "Artist -
// Title" is split on the first separator; otherwise the uploader, stripped of
// channel decoration, is the artist.
func SplitTitle(pageTitle, uploader string) (artist, title string) {
	cleaned := StripNoise(textutil.CleanValue(pageTitle))
	for _, sep := range separators {
		if left, right, ok := strings.Cut(cleaned, sep); ok && strings.TrimSpace(left) != "" && strings.TrimSpace(right) != "" {
			return textutil.TitleIfLower(left), textutil.TitleIfLower(trimQuotes(right))
		}
	}
	return textutil.TitleIfLower(CleanUploader(uploader)), textutil.TitleIfLower(trimQuotes(cleaned))
}

// CleanUploader strips channel decoration like "VEVO" or " - Topic".
func CleanUploader(uploader string) string {
	uploader = strings.TrimSpace(uploader)
	for _, suffix := range uploaderSuffixes {
		if trimmed, ok := strings.CutSuffix(uploader, suffix); ok && strings.TrimSpace(trimmed) != "" {
			uploader = strings.TrimSpace(trimmed)
		}
	}
	return uploader
}

// Year extracts the year from a yt-dlp upload_date (YYYYMMDD).
func Year(uploadDate string) string {
	uploadDate = strings.TrimSpace(uploadDate)
	if len(uploadDate) < 4 {
		return ""
	}
	for _, r := range uploadDate[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return uploadDate[:4]
}

func trimQuotes(value string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"'“”`))
}
