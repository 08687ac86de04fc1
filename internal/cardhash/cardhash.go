// Package cardhash derives a stable content identity for a card.
// Scheduling state (box, review date) and scoping labels are excluded
// on purpose: moving a card between subjects or reviewing it must not
// change its identity.
package cardhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/leitner/internal/domain"
)

// Normalize joins the card's content fields after cleaning each one:
// lowercased, whitespace-trimmed, line endings unified. Fields are
// joined with a newline so "question" + "answer" can never collide
// with "questionanswer".
func Normalize(card domain.Card) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}
	return strings.Join([]string{
		clean(card.Question),
		clean(card.Answer),
		clean(card.Context),
	}, "\n")
}

// Hash returns the SHA-256 of the normalized card content as a hex
// string.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", sum)
}
