package convert

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// defaultTokenBudget caps the extracted text handed downstream
	defaultTokenBudget = 50000
	// charsPerToken approximates the budget when no tokenizer is available
	charsPerToken = 4
)

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

func getTokenizer() *tiktoken.Tiktoken {
	tokenizerOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			tokenizer = enc
		}
	})
	return tokenizer
}

// truncateToBudget cuts text down to a token budget. With the tokenizer
// available the cut is exact; otherwise it approximates at 4 chars/token.
// Either way the cut never splits a multi-byte character.
func truncateToBudget(text string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}
	if enc := getTokenizer(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= budget {
			return text
		}
		// cl100k tokens are byte-level, so a token boundary can land inside
		// a multi-byte character. Drop any dangling partial sequence.
		return trimPartialRune(enc.Decode(tokens[:budget]))
	}
	return truncateByChars(text, budget*charsPerToken)
}

// truncateByChars keeps the first limit characters, not bytes.
func truncateByChars(text string, limit int) string {
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// trimPartialRune strips trailing bytes that do not form a complete UTF-8
// sequence. A real U+FFFD in the input decodes with size 3 and is kept.
func trimPartialRune(text string) string {
	for len(text) > 0 {
		r, size := utf8.DecodeLastRuneInString(text)
		if r != utf8.RuneError || size > 1 {
			return text
		}
		text = text[:len(text)-1]
	}
	return text
}
