package parser

import (
	"strings"
	"testing"

	"github.com/conorfennell/leitner/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expected      domain.Card
	}{
		{
			name:          "simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expected: domain.Card{
				Question: "What is the capital of France?",
				Answer:   "Paris",
			},
		},
		{
			name:          "question answer and context",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expected: domain.Card{
				Question: "What is 1+1?",
				Answer:   "2",
				Context:  "Basic arithmetic",
			},
		},
		{
			name: "multiline answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expected: domain.Card{
				Question: "What are the primary colors?",
				Answer:   "Red\nBlue\nYellow",
			},
		},
		{
			name: "subject and topic labels",
			input: `
S: Biology
T: Cells
Q: What is a ribosome?
A: The site of protein synthesis.
`,
			expectedCards: 1,
			expected: domain.Card{
				Question: "What is a ribosome?",
				Answer:   "The site of protein synthesis.",
				Subject:  "Biology",
				Topic:    "Cells",
			},
		},
		{
			name: "two cards split by new question",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "two cards split by separator",
			input: `
Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name:          "no cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "subject label without question is dropped",
			input:         "S: Biology\nT: Cells",
			expectedCards: 0,
		},
		{
			name:          "prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expected: domain.Card{
				Question: "Question",
				Answer:   "Answer",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if len(cards) != tc.expectedCards {
				t.Fatalf("expected %d cards, got %d", tc.expectedCards, len(cards))
			}
			if tc.expectedCards != 1 {
				return
			}

			card := cards[0]
			if card.Question != tc.expected.Question {
				t.Errorf("Question = %q, want %q", card.Question, tc.expected.Question)
			}
			if card.Answer != tc.expected.Answer {
				t.Errorf("Answer = %q, want %q", card.Answer, tc.expected.Answer)
			}
			if card.Context != tc.expected.Context {
				t.Errorf("Context = %q, want %q", card.Context, tc.expected.Context)
			}
			if card.Subject != tc.expected.Subject {
				t.Errorf("Subject = %q, want %q", card.Subject, tc.expected.Subject)
			}
			if card.Topic != tc.expected.Topic {
				t.Errorf("Topic = %q, want %q", card.Topic, tc.expected.Topic)
			}
		})
	}
}

func TestParsePerCardLabels(t *testing.T) {
	input := `
S: Maths
T: Algebra
Q: First
A: One
---
Q: Second
A: Two
`
	cards, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Subject != "Maths" || cards[0].Topic != "Algebra" {
		t.Errorf("first card labels = %q/%q, want Maths/Algebra", cards[0].Subject, cards[0].Topic)
	}
	// Labels are per card, not inherited by the next one.
	if cards[1].Subject != "" || cards[1].Topic != "" {
		t.Errorf("second card inherited labels: %q/%q", cards[1].Subject, cards[1].Topic)
	}
}
