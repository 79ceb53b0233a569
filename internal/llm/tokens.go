package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const tokenEncoding = "cl100k_base"

// TokenCounter estimates how many tokens a transcript costs. The BPE ranks are
// loaded lazily on first use; if that fails the counter falls back to
// EstimateTokens for the rest of the process.
type TokenCounter struct {
	once   sync.Once
	load   func() (*tiktoken.Tiktoken, error)
	enc    *tiktoken.Tiktoken
	logger *zap.Logger
}

func NewTokenCounter(logger *zap.Logger) *TokenCounter {
	return &TokenCounter{
		load:   func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding(tokenEncoding) },
		logger: logger,
	}
}

// NewHeuristicCounter returns a counter that never loads BPE ranks.
func NewHeuristicCounter() *TokenCounter {
	return &TokenCounter{logger: zap.NewNop()}
}

func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		if c.load == nil {
			return
		}
		enc, err := c.load()
		if err != nil {
			c.logger.Warn("Failed to load token encoding, using heuristic", zap.String("encoding", tokenEncoding), zap.Error(err))
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateTokens approximates token count as one token per four characters.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
