package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Key derives the content address of a request: the hex SHA-256 of the raw
// UTF-8 bytes of idea|context|mode. Fields are hashed as given, so stores
// keyed by the same formula elsewhere agree with this one.
func Key(req prompt.Request) string {
	return HashContent(req.Idea + "|" + req.Context + "|" + string(req.Mode))
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
