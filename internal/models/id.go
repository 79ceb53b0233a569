package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

const (
	maxTitleLength = 40
	titleEllipsis  = "..."
)

// GenerateID returns "<unix millis>-<9 hex chars>". The random suffix keeps ids
// distinct within a millisecond.
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}

// NewProjectID returns an id for a project, drawn from a separate source so
// project and conversation ids never collide.
func NewProjectID() string {
	return shortuuid.New()
}

// DeriveTitle turns the first message of a conversation into its title.
// Titles longer than 40 runes are cut and suffixed with "...".
func DeriveTitle(firstMessage string) string {
	cleaned := strings.TrimSpace(firstMessage)
	runes := []rune(cleaned)
	if len(runes) <= maxTitleLength {
		return cleaned
	}
	return string(runes[:maxTitleLength]) + titleEllipsis
}
