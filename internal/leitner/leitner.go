// Package leitner implements the five-box spaced-repetition engine:
// the interval table, the box transition rule, the review scheduler and
// the due/frozen classifier. Everything here is pure; callers pass the
// clock in explicitly so one captured "now" flows through a whole
// operation.
package leitner

import (
	"fmt"
	"math"
	"time"
)

// Boxes is the number of Leitner proficiency boxes.
const Boxes = 5

// Intervals maps a box number to the whole days until the next review.
// Intervals[0] is box 1.
type Intervals [Boxes]int

// DefaultIntervals is the canonical table: 1, 2, 3, 7 and 21 days.
func DefaultIntervals() Intervals {
	return Intervals{1, 2, 3, 7, 21}
}

// OutOfRangeError reports a box number outside [1,5]. Receiving one is a
// programming error in the caller, never expected from user input.
type OutOfRangeError struct {
	Box int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("leitner: box %d out of range [1,%d]", e.Box, Boxes)
}

// Days returns the review interval for box.
func (iv Intervals) Days(box int) (int, error) {
	if box < 1 || box > Boxes {
		return 0, &OutOfRangeError{Box: box}
	}
	return iv[box-1], nil
}

// Validate checks that every interval is at least one day and that the
// table is non-decreasing in box number.
func (iv Intervals) Validate() error {
	for i, days := range iv {
		if days < 1 {
			return fmt.Errorf("leitner: interval for box %d must be at least 1 day, got %d", i+1, days)
		}
		if i > 0 && days < iv[i-1] {
			return fmt.Errorf("leitner: interval table must be non-decreasing, box %d (%d days) < box %d (%d days)",
				i+1, days, i, iv[i-1])
		}
	}
	return nil
}

// NextBox returns the box a card moves to after a review. A correct
// answer promotes one box, capped at the top box. Any incorrect answer
// resets to box 1.
func NextBox(current int, correct bool) int {
	if !correct {
		return 1
	}
	if current >= Boxes {
		return Boxes
	}
	return current + 1
}

// Schedule returns the next eligible review instant for a card that has
// just moved to nextBox. The interval is added in calendar days, so the
// wall-clock time of now is preserved: a card answered at 11pm and
// scheduled "tomorrow" becomes due at 11pm tomorrow.
func (iv Intervals) Schedule(nextBox int, now time.Time) (time.Time, error) {
	days, err := iv.Days(nextBox)
	if err != nil {
		return time.Time{}, err
	}
	return now.AddDate(0, 0, days), nil
}

// Review is the derived due/frozen status of a card at a reference
// instant. DaysUntil is 0 when the card is due.
type Review struct {
	Frozen    bool
	DaysUntil int
}

// Classify reports whether a card scheduled for nextReview is frozen at
// now. The comparison is date-only: both instants are truncated to local
// midnight first, so a card due later today already counts as due.
func Classify(nextReview, now time.Time) Review {
	reviewDay := midnight(nextReview)
	today := midnight(now)
	if !reviewDay.After(today) {
		return Review{}
	}
	// Rounding absorbs DST shifts between the two midnights.
	days := int(math.Round(reviewDay.Sub(today).Hours() / 24))
	return Review{Frozen: true, DaysUntil: days}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
