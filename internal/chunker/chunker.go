// Package chunker splits extracted document text into overlapping passages.
//
// Sizes are measured in tokens, where a token is a run of non-whitespace
// characters of at most MaxTokenRunes runes. Windows prefer to end on a
// paragraph break in their upper half, then on a sentence end past the
// overlap, and fall back to a hard cut.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"prayogai-rag/internal/model"
)

// Span is a half-open byte range into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Chunk struct {
	Text       string
	Ordinal    int
	Span       Span
	TokenCount int
}

// MaxTokenRunes caps a single token so text without spaces still yields
// bounded passages.
const MaxTokenRunes = 16

type token struct {
	start, end int
}

// Split is pure: the same input always yields the same chunks.
func Split(text string, maxTokens, overlapTokens int) ([]Chunk, error) {
	if maxTokens <= 0 || overlapTokens < 0 || maxTokens <= overlapTokens {
		return nil, fmt.Errorf("%w: chunk size %d with overlap %d", model.ErrInvalidInput, maxTokens, overlapTokens)
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return []Chunk{{Ordinal: 0}}, nil
	}

	var chunks []Chunk
	n := len(tokens)
	for s := 0; s < n; {
		e := n
		if s+maxTokens < n {
			e = boundary(text, tokens, s, s+maxTokens, maxTokens, overlapTokens)
		}

		span := Span{Start: tokens[s].start, End: tokens[e-1].end}
		chunks = append(chunks, Chunk{
			Text:       text[span.Start:span.End],
			Ordinal:    len(chunks),
			Span:       span,
			TokenCount: e - s,
		})
		if e == n {
			break
		}

		next := e - overlapTokens
		if next <= s {
			next = s + 1
		}
		s = next
	}
	return chunks, nil
}

// boundary picks the exclusive end token index of the window starting at s.
// The result always lies past s+overlapTokens, so the next window starts
// after s and shares exactly overlapTokens tokens with this one.
func boundary(text string, tokens []token, s, limit, maxTokens, overlapTokens int) int {
	for e := limit; e > s+max(maxTokens/2, overlapTokens); e-- {
		if paragraphBreak(text[tokens[e-1].end:tokens[e].start]) {
			return e
		}
	}
	for e := limit; e > s+overlapTokens; e-- {
		if sentenceEnd(text[tokens[e-1].start:tokens[e-1].end]) {
			return e
		}
	}
	return limit
}

func tokenize(text string) []token {
	var tokens []token
	start, runes := -1, 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start: start, end: i})
				start = -1
			}
			continue
		}
		if start >= 0 && runes == MaxTokenRunes {
			tokens = append(tokens, token{start: start, end: i})
			start = -1
		}
		if start < 0 {
			start, runes = i, 0
		}
		runes++
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text)})
	}
	return tokens
}

func paragraphBreak(gap string) bool {
	return strings.Count(gap, "\n") >= 2
}

func sentenceEnd(word string) bool {
	word = strings.TrimRight(word, "\"')]}»”’")
	if word == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(word)
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
