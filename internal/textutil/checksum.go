package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Checksum returns the lowercase hex MD5 digest of the trimmed value. It is an
// identity key, not a security primitive.
func Checksum(value string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(value)))
	return hex.EncodeToString(sum[:])
}
