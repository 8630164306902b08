package model

import (
	"fmt"
	"math"
	"strings"
)

const minMCQOptions = 2

func validScore(s float64) bool {
	return !math.IsNaN(s) && s >= 0 && s <= 100
}

// Validate checks a single question produced by the question source.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{Field: "question", Reason: ReasonRequired}
	}
	switch q.Type {
	case QuestionMCQ:
		if len(q.Options) < minMCQOptions {
			return &ValidationError{Field: "options", Reason: ReasonTooShort}
		}
		for _, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return &ValidationError{Field: "options", Reason: ReasonRequired}
			}
		}
	case QuestionShortAnswer:
		if len(q.Options) > 0 {
			return &ValidationError{Field: "options", Reason: ReasonMalformed}
		}
	default:
		return &ValidationError{Field: "type", Reason: ReasonMalformed}
	}
	return nil
}

// ValidateQuestions checks an ordered question set. An empty set is invalid.
func ValidateQuestions(qs []Question) error {
	if len(qs) == 0 {
		return &ValidationError{Field: "questions", Reason: ReasonRequired}
	}
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks an evaluation against the number of questions it grades.
// The breakdown may cover a subset of questions, but each index must be in
// range and appear once.
func (e Evaluation) Validate(numQuestions int) error {
	if !validScore(e.OverallScore) {
		return &ValidationError{Field: "overall_score", Reason: ReasonOutOfRange}
	}
	seen := make(map[int]bool, len(e.Breakdown))
	for _, b := range e.Breakdown {
		if b.QuestionIndex < 0 || b.QuestionIndex >= numQuestions {
			return &ValidationError{Field: "question_index", Reason: ReasonOutOfRange}
		}
		if seen[b.QuestionIndex] {
			return &ValidationError{Field: "question_index", Reason: ReasonDuplicate}
		}
		seen[b.QuestionIndex] = true
		if !validScore(b.Score) {
			return &ValidationError{Field: "score", Reason: ReasonOutOfRange}
		}
	}
	return nil
}
