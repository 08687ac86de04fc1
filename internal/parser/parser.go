// Package parser extracts flashcards from plain markdown files.
//
// A card is a block of prefixed lines:
//
//	S: Biology            (optional subject override, single line)
//	T: Cells              (optional topic override, single line)
//	Q: What is a ribosome?
//	A: The site of protein synthesis.
//	C: Can span multiple lines until the next prefix.
//
// Cards are separated by "---" or by the next Q: line. Q, A and C
// blocks may span multiple lines; S and T are single-line labels.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/leitner/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	subjectPrefix  = "S:"
	topicPrefix    = "T:"
	separator      = "---"
)

// ParseFile reads the file at path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from r and extracts all cards. Text outside any card
// block is ignored; a block without a question is dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)

	var cards []domain.Card
	var card domain.Card
	var block []string
	var target *string
	haveQuestion := false

	flushBlock := func() {
		if target != nil && len(block) > 0 {
			*target = strings.Join(block, "\n")
		}
		block = nil
		target = nil
	}
	flushCard := func() {
		flushBlock()
		if card.Question != "" {
			cards = append(cards, card)
		}
		card = domain.Card{}
		haveQuestion = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			flushCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			if haveQuestion {
				flushCard()
			}
			flushBlock()
			haveQuestion = true
			target = &card.Question
			block = append(block, trimPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			target = &card.Answer
			block = append(block, trimPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			target = &card.Context
			block = append(block, trimPrefix(line, contextPrefix))
		case strings.HasPrefix(line, subjectPrefix):
			flushBlock()
			card.Subject = trimPrefix(line, subjectPrefix)
		case strings.HasPrefix(line, topicPrefix):
			flushBlock()
			card.Topic = trimPrefix(line, topicPrefix)
		default:
			if target != nil {
				block = append(block, line)
			}
		}
	}
	flushCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func trimPrefix(line, prefix string) string {
	content := line[len(prefix):]
	return strings.TrimPrefix(content, " ")
}
