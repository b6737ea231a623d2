package util

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// KeyMD5 hashes the parts joined by "|" into a hex cache key.
func KeyMD5(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
