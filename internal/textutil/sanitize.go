package textutil

import "strings"

// fileNameReplacer drops characters that are unsafe in file names on common
// filesystems and folds line breaks into spaces.
var fileNameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\t", " ",
)

// SanitizeFileName removes filesystem-unsafe characters and line breaks from
// name, collapses repeated whitespace, and trims the result. Leading dots are
// dropped so the result never names a hidden file.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := strings.Join(strings.Fields(fileNameReplacer.Replace(name)), " ")
	return strings.TrimSpace(strings.TrimLeft(cleaned, "."))
}

// CleanValue trims whitespace and stray carriage returns from a metadata
// value before it is written to a tag.
func CleanValue(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, "\r", ""))
}
