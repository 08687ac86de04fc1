package domain

import "time"

// Card is a single flashcard enrolled in the Leitner scheduler.
// Hash is the card's identity, derived from its normalized content.
type Card struct {
	Hash     string
	Question string
	Answer   string
	Context  string
	Subject  string
	Topic    string

	// Box is the Leitner proficiency box, in [1,5] for well-formed rows.
	// NextReview is set by the scheduler on every box transition.
	Box         int
	NextReview  time.Time
	InStudyBank bool
}

// Filter scopes a card query. Zero-value fields impose no constraint.
// Store queries always restrict to study-bank cards of active subjects
// on top of whatever Filter asks for.
type Filter struct {
	Subject string
	Topic   string
	Box     int
}

// BoxAggregate is a point-in-time summary of a scoped card set.
// Boxes[i] counts cards in box i+1.
type BoxAggregate struct {
	Boxes            [5]int
	TotalDue         int
	TotalInStudyBank int
}
