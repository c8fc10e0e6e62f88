package router

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens exactly with the cl100k_base encoding.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the encoding. Loading may fetch the BPE ranks on
// first use, so callers should treat failure as "exact counts unavailable".
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding: %w", err)
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *TokenCounter) Count(text string) int {
	if t == nil || t.enc == nil {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountPrompt returns the exact input tokens of a rendered prompt.
func (t *TokenCounter) CountPrompt(p PromptTier) int {
	return t.Count(p.SystemPrompt) + t.Count(p.UserPrompt)
}
