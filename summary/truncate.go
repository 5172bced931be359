package summary

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// modelEncodings maps summarizer models to their tiktoken encoding.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// tokenCounter counts and truncates text by model tokens. Encoding init
// is lazy; it may download data on first use.
type tokenCounter struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

func newTokenCounter(model string) *tokenCounter {
	encoding, ok := modelEncodings[model]
	if !ok {
		for prefix, e := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				encoding, ok = e, true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}
	return &tokenCounter{encoding: encoding}
}

func (t *tokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = err
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// Count returns the token count, falling back to a rough rune estimate
// when the encoding is unavailable.
func (t *tokenCounter) Count(text string) int {
	if err := t.init(); err != nil {
		return len([]rune(text)) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate cuts text down to at most max tokens, preserving a valid
// prefix. Falls back to a rune cut when the encoding is unavailable.
func (t *tokenCounter) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if err := t.init(); err != nil {
		runes := []rune(text)
		if len(runes) > max*4 {
			return string(runes[:max*4])
		}
		return text
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= max {
		return text
	}
	return t.enc.Decode(ids[:max])
}
