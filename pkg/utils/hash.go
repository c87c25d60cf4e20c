package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// ShapeKey derives a cache key from the shape of a backend query: the
// endpoint plus its ordered parameters. Identical shapes always map to
// the same key.
func ShapeKey(parts ...string) string {
	return HashString(strings.Join(parts, "|"))
}
