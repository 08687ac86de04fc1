// Package aggregate computes per-box and due-count statistics over a
// card set. Read-only: nothing here mutates a card, and results are
// recomputed fresh on every call, never cached.
package aggregate

import (
	"time"

	"github.com/conorfennell/leitner/internal/domain"
	"github.com/conorfennell/leitner/internal/leitner"
)

// Compute summarizes cards at the reference instant now. filter may be
// nil for no additional scoping. Cards outside the study bank are
// skipped entirely. A card with an out-of-range box number is display
// data gone bad, not a reason to fail the whole aggregate: it is left
// out of the per-box counts but still included in TotalInStudyBank.
func Compute(cards []domain.Card, now time.Time, filter *domain.Filter) domain.BoxAggregate {
	var agg domain.BoxAggregate
	for _, card := range cards {
		if !card.InStudyBank {
			continue
		}
		if !matches(card, filter) {
			continue
		}

		agg.TotalInStudyBank++
		if card.Box >= 1 && card.Box <= leitner.Boxes {
			agg.Boxes[card.Box-1]++
		}
		if !leitner.Classify(card.NextReview, now).Frozen {
			agg.TotalDue++
		}
	}
	return agg
}

func matches(card domain.Card, f *domain.Filter) bool {
	if f == nil {
		return true
	}
	if f.Subject != "" && card.Subject != f.Subject {
		return false
	}
	if f.Topic != "" && card.Topic != f.Topic {
		return false
	}
	if f.Box != 0 && card.Box != f.Box {
		return false
	}
	return true
}
