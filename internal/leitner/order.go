package leitner

import (
	"sort"
	"time"

	"github.com/conorfennell/leitner/internal/domain"
)

// OrderPolicy selects the deterministic sort applied to a card set
// before a session starts. Every policy is a stable sort.
type OrderPolicy int

const (
	// DueFirst partitions due cards before frozen ones, preserving the
	// relative order inside each partition. Used by free study.
	DueFirst OrderPolicy = iota
	// BoxAscending sorts by box number. Used by browse listings.
	BoxAscending
	// ReviewDateAscending sorts earliest-due first. Used by single-box
	// review, where every card shares a box but not a schedule.
	ReviewDateAscending
)

// Order returns a sorted copy of cards under policy. The input slice is
// not modified.
func Order(cards []domain.Card, policy OrderPolicy, now time.Time) []domain.Card {
	out := make([]domain.Card, len(cards))
	copy(out, cards)

	switch policy {
	case DueFirst:
		sort.SliceStable(out, func(i, j int) bool {
			iDue := !Classify(out[i].NextReview, now).Frozen
			jDue := !Classify(out[j].NextReview, now).Frozen
			return iDue && !jDue
		})
	case BoxAscending:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Box < out[j].Box
		})
	case ReviewDateAscending:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].NextReview.Before(out[j].NextReview)
		})
	}
	return out
}
