// Package session drives one bounded pass through an ordered card set:
// the lifetime of a single study screen. The controller owns the cursor
// and the correct/incorrect tally, applies the box transition and
// reschedule on each answer, and asks the store to persist the result.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/leitner/internal/domain"
	"github.com/conorfennell/leitner/internal/leitner"
)

// State is the controller's lifecycle position.
type State int

const (
	// Empty means the fetched card set had nothing to review.
	Empty State = iota
	// Ready means a card is available at the cursor.
	Ready
	// Completed means every card was passed through and answered or
	// skipped; the tally is final.
	Completed
	// Drained means deletions emptied the deck mid-session. Distinct
	// from Completed: zero cards left is not a finished review.
	Drained
)

// Stats is the session tally. Counters only ever grow.
type Stats struct {
	Correct   int
	Incorrect int
	Total     int
}

// Store persists a card's box and review date after an answer. The
// update must be atomic per card.
type Store interface {
	UpdateCardSchedule(hash string, box int, nextReview time.Time) error
}

var (
	// ErrNoCurrentCard is returned when the session holds no card at
	// the cursor (Empty, Completed or Drained).
	ErrNoCurrentCard = errors.New("session: no current card")
	// ErrFrozenCard is returned when answering a card before its
	// review date. Frozen cards are view-only.
	ErrFrozenCard = errors.New("session: card is frozen until its review date")
	// ErrOutOfBounds is returned for a removal index outside the deck.
	ErrOutOfBounds = errors.New("session: card index out of bounds")
)

// PersistError reports a failed schedule write. The in-memory card
// already carries the new box and review date and the session has
// advanced; the caller decides whether to retry the write or move on.
type PersistError struct {
	CardHash string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("session: persisting schedule for card %s: %v", e.CardHash, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Session is a single pass over an ordered card set. Not safe for
// concurrent use; one study screen drives one session.
type Session struct {
	store     Store
	intervals leitner.Intervals
	clock     func() time.Time

	cards []domain.Card
	index int
	stats Stats
	state State
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// New orders cards under policy and returns a controller positioned on
// the first card. The input slice is not retained.
func New(cards []domain.Card, policy leitner.OrderPolicy, intervals leitner.Intervals, store Store, opts ...Option) *Session {
	s := &Session{
		store:     store,
		intervals: intervals,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cards = leitner.Order(cards, policy, s.clock())
	if len(s.cards) == 0 {
		s.state = Empty
	} else {
		s.state = Ready
	}
	return s
}

// State returns the controller's lifecycle position.
func (s *Session) State() State { return s.state }

// Stats returns the running tally.
func (s *Session) Stats() Stats { return s.stats }

// Len returns the number of cards remaining in the deck.
func (s *Session) Len() int { return len(s.cards) }

// Index returns the 0-based cursor position.
func (s *Session) Index() int { return s.index }

// Current returns the card at the cursor and its due/frozen status. A
// frozen card may be viewed but not answered.
func (s *Session) Current() (domain.Card, leitner.Review, error) {
	if s.state != Ready {
		return domain.Card{}, leitner.Review{}, ErrNoCurrentCard
	}
	card := s.cards[s.index]
	return card, leitner.Classify(card.NextReview, s.clock()), nil
}

// Answer records a correctness judgment for the current card: box
// transition, reschedule, store write, tally increment, advance. The
// in-memory card is updated before the store write so the UI stays
// responsive; a write failure comes back as a recoverable
// *PersistError after the session has already advanced.
func (s *Session) Answer(correct bool) error {
	if s.state != Ready {
		return ErrNoCurrentCard
	}

	now := s.clock()
	card := &s.cards[s.index]
	if leitner.Classify(card.NextReview, now).Frozen {
		return ErrFrozenCard
	}

	nextBox := leitner.NextBox(card.Box, correct)
	nextReview, err := s.intervals.Schedule(nextBox, now)
	if err != nil {
		return err
	}

	card.Box = nextBox
	card.NextReview = nextReview
	if correct {
		s.stats.Correct++
	} else {
		s.stats.Incorrect++
	}
	s.stats.Total++

	persistErr := s.store.UpdateCardSchedule(card.Hash, nextBox, nextReview)

	s.advance()

	if persistErr != nil {
		return &PersistError{CardHash: card.Hash, Err: persistErr}
	}
	return nil
}

// Skip moves past the current card without answering it. Used to step
// over frozen cards in mixed decks.
func (s *Session) Skip() error {
	if s.state != Ready {
		return ErrNoCurrentCard
	}
	s.advance()
	return nil
}

func (s *Session) advance() {
	s.index++
	if s.index >= len(s.cards) {
		s.state = Completed
	}
}

// Remove deletes the card at i from the deck, clamping the cursor.
// Used by preview and editing flows, not live study. Emptying the deck
// yields Drained, never Completed.
func (s *Session) Remove(i int) error {
	if len(s.cards) == 0 {
		return ErrNoCurrentCard
	}
	if i < 0 || i >= len(s.cards) {
		return ErrOutOfBounds
	}

	s.cards = append(s.cards[:i], s.cards[i+1:]...)
	if len(s.cards) == 0 {
		s.index = 0
		s.state = Drained
		return nil
	}
	if s.index >= len(s.cards) {
		s.index = len(s.cards) - 1
	}
	return nil
}
