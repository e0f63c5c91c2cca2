package cli

import (
	"github.com/yildizm/recsvd/internal/emoji"
)

// GetEmoji is a wrapper for the shared emoji package
func GetEmoji(key string) string {
	return emoji.GetEmoji(key)
}

// statusLine prefixes a message with an emoji or its ASCII fallback
func statusLine(key, msg string) string {
	return GetEmoji(key) + " " + msg
}
