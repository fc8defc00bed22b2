package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bitterfly/go-chaos/fabrica/schema"
)

var (
	ErrUnknownKind     = errors.New("unknown game kind")
	ErrOptionsTooLarge = fmt.Errorf("options exceed %d bytes", schema.MaxOptionsSize)
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type Options interface {
	Validate() error
}

type QuizQuestion struct {
	Title   RichText `json:"title"`
	Answers []string `json:"answers"`
}

type QuizOptions []QuizQuestion

const (
	MaxQuizQuestions = 10
	MinQuizAnswers   = 2
	MaxQuizAnswers   = 5
)

func (o QuizOptions) Validate() error {
	if len(o) == 0 {
		return invalid("options", "at least one question is required")
	}
	if len(o) > MaxQuizQuestions {
		return invalid("options", "at most %d questions are allowed", MaxQuizQuestions)
	}
	for i, q := range o {
		if strings.TrimSpace(q.Title.Plain) == "" {
			return invalid(fmt.Sprintf("options[%d].title", i), "must not be empty")
		}
		if len(q.Answers) < MinQuizAnswers || len(q.Answers) > MaxQuizAnswers {
			return invalid(fmt.Sprintf("options[%d].answers", i),
				"must have between %d and %d answers", MinQuizAnswers, MaxQuizAnswers)
		}
		for j, a := range q.Answers {
			if strings.TrimSpace(a) == "" {
				return invalid(fmt.Sprintf("options[%d].answers[%d]", i, j), "must not be empty")
			}
		}
	}
	return nil
}

type TrueOrFalseQuestion struct {
	Title  RichText `json:"title"`
	Answer bool     `json:"answer"`
}

type TrueOrFalseOptions []TrueOrFalseQuestion

const MaxTrueOrFalseQuestions = 8

func (o TrueOrFalseOptions) Validate() error {
	if len(o) == 0 {
		return invalid("options", "at least one question is required")
	}
	if len(o) > MaxTrueOrFalseQuestions {
		return invalid("options", "at most %d questions are allowed", MaxTrueOrFalseQuestions)
	}
	for i, q := range o {
		if strings.TrimSpace(q.Title.Plain) == "" {
			return invalid(fmt.Sprintf("options[%d].title", i), "must not be empty")
		}
	}
	return nil
}

type Group struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type GroupSortOptions []Group

const GroupSortGroups = 2

func (o GroupSortOptions) Validate() error {
	if len(o) != GroupSortGroups {
		return invalid("options", "exactly %d groups are required", GroupSortGroups)
	}
	for i, g := range o {
		if strings.TrimSpace(g.Title) == "" {
			return invalid(fmt.Sprintf("options[%d].title", i), "must not be empty")
		}
		if len(g.Items) == 0 {
			return invalid(fmt.Sprintf("options[%d].items", i), "at least one item is required")
		}
		for j, item := range g.Items {
			if strings.TrimSpace(item) == "" {
				return invalid(fmt.Sprintf("options[%d].items[%d]", i, j), "must not be empty")
			}
		}
	}
	return nil
}

type AnagramOptions []string

const MaxAnagramWords = 10

func (o AnagramOptions) Validate() error {
	return validateWords(o, MaxAnagramWords, 0)
}

type WordSearchOptions []string

const (
	MaxWordSearchWords  = 12
	MaxWordSearchLength = 15
)

func (o WordSearchOptions) Validate() error {
	return validateWords(o, MaxWordSearchWords, MaxWordSearchLength)
}

func validateWords(words []string, max, maxLength int) error {
	if len(words) == 0 {
		return invalid("options", "at least one word is required")
	}
	if len(words) > max {
		return invalid("options", "at most %d words are allowed", max)
	}
	for i, w := range words {
		field := fmt.Sprintf("options[%d]", i)
		if w == "" {
			return invalid(field, "must not be empty")
		}
		for _, r := range w {
			if !unicode.IsLetter(r) {
				return invalid(field, "must contain only letters")
			}
		}
		if maxLength > 0 && utf8.RuneCountInString(w) > maxLength {
			return invalid(field, "must have at most %d letters", maxLength)
		}
	}
	return nil
}

type Pair struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

type MatchUpOptions []Pair

const MaxMatchUpPairs = 10

func (o MatchUpOptions) Validate() error {
	if len(o) == 0 {
		return invalid("options", "at least one pair is required")
	}
	if len(o) > MaxMatchUpPairs {
		return invalid("options", "at most %d pairs are allowed", MaxMatchUpPairs)
	}
	for i, p := range o {
		if strings.TrimSpace(p.Word) == "" || strings.TrimSpace(p.Meaning) == "" {
			return invalid(fmt.Sprintf("options[%d]", i), "word and meaning are required")
		}
	}
	return nil
}

type MemoryGameOptions []string

const (
	MinMemoryCards = 2
	MaxMemoryCards = 12
)

func (o MemoryGameOptions) Validate() error {
	if len(o) < MinMemoryCards || len(o) > MaxMemoryCards {
		return invalid("options", "must have between %d and %d cards", MinMemoryCards, MaxMemoryCards)
	}
	for i, c := range o {
		if strings.TrimSpace(c) == "" {
			return invalid(fmt.Sprintf("options[%d]", i), "must not be empty")
		}
	}
	return nil
}

func newOptions(kind schema.Kind) (Options, error) {
	switch kind {
	case schema.Quiz:
		return &QuizOptions{}, nil
	case schema.TrueOrFalse:
		return &TrueOrFalseOptions{}, nil
	case schema.GroupSort:
		return &GroupSortOptions{}, nil
	case schema.Anagram:
		return &AnagramOptions{}, nil
	case schema.WordSearch:
		return &WordSearchOptions{}, nil
	case schema.MatchUp:
		return &MatchUpOptions{}, nil
	case schema.MemoryGame:
		return &MemoryGameOptions{}, nil
	}
	return nil, ErrUnknownKind
}

// Decode parses raw options for kind and validates them.
func Decode(kind schema.Kind, raw json.RawMessage) (Options, error) {
	opts, err := newOptions(kind)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, invalid("options", "required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(opts); err != nil {
		return nil, invalid("options", "malformed: %s", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Normalize decodes, validates and re-encodes options, converting rich text
// titles to markup. The result fits the options column.
func Normalize(kind schema.Kind, raw json.RawMessage) ([]byte, error) {
	opts, err := Decode(kind, raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("could not encode options: %w", err)
	}
	if len(data) > schema.MaxOptionsSize {
		return nil, ErrOptionsTooLarge
	}
	return data, nil
}
