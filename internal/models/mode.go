package models

import "fmt"

// ThinkingMode selects how much reasoning the remote service spends on a reply.
type ThinkingMode string

const (
	ModeAuto     ThinkingMode = "auto"
	ModeInstant  ThinkingMode = "instant"
	ModeThinking ThinkingMode = "thinking"
)

func ParseThinkingMode(s string) (ThinkingMode, error) {
	switch m := ThinkingMode(s); m {
	case ModeAuto, ModeInstant, ModeThinking:
		return m, nil
	case "":
		return ModeInstant, nil
	default:
		return "", fmt.Errorf("unknown thinking mode %q", s)
	}
}
